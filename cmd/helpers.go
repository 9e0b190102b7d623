package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/auth"
	"github.com/vacwatch/vacwatch/pkg/bemlo"
	"github.com/vacwatch/vacwatch/pkg/notify"
	"github.com/vacwatch/vacwatch/pkg/scrape"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

// newOrchestrator wires a session, client, paginator and webhook around the
// open database. Missing credentials are a startup error, never a per-call
// one.
func newOrchestrator(db *storage.DB, pageSize, maxPages int, details bool) (*scrape.Orchestrator, error) {
	email := viper.GetString("bemlo.email")
	password := viper.GetString("bemlo.password")
	if email == "" || password == "" {
		return nil, fmt.Errorf("bemlo.email and bemlo.password must be set in the config file or environment")
	}

	session := auth.NewSession(email, password)
	client := bemlo.NewClient(session)

	paginator := bemlo.NewPaginator(client)
	if pageSize > 0 {
		paginator.PageSize = pageSize
	}
	if maxPages > 0 {
		paginator.MaxPages = maxPages
	}

	return scrape.New(scrape.Config{
		Paginator:    paginator,
		Client:       client,
		DB:           db,
		Webhook:      notify.NewWebhook(viper.GetString("webhook.url")),
		Log:          utils.Log,
		FetchDetails: details,
	}), nil
}

// openDB resolves the path, takes the cross-process lock and opens the
// database. The returned unlock must run after all writes are done.
func openDB(dbPath string) (*storage.DB, func(), error) {
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, nil, err
	}

	lock, err := utils.NewDBLock(absPath)
	if err != nil {
		return nil, nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(absPath)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}

	return db, func() {
		db.Close()
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("Could not release db lock: %v", err)
		}
	}, nil
}
