package bemlo

var vacanciesListQuery = `
query VacanciesList($afterCursor: String, $filter: VacancyFilter!, $orderBy: VacancyOrderBy!, $orderDir: OrderByDirection!, $take: Int!) {
  allVacancies(
    afterCursor: $afterCursor
    filter: $filter
    orderBy: $orderBy
    orderDir: $orderDir
    take: $take
  ) {
    pageInfo {
      hasNextPage
      startCursor
      endCursor
    }
    edges {
      cursor
      node {
        createdAt
        hasLastApplicationDate
        id
        profession
        specializations
        isViewed
        jobType
        jobEndsAt
        jobStartsAt
        lastApplicationDate
        reviewStatus
        procuredAmount
        procuredAmountCurrency
        municipality
        region
        tender {
          id
          title
          extensionForId
          announcedAt
          startsAt
          endsAt
          scope
          lastPresentationDate
          pricing
          scheduleType
          dynamicStatus
          urgentShiftsCount
          fillRate
          unit {
            id
            name
            municipality
          }
          orderer {
            id
            displayName
          }
        }
        title
      }
    }
  }
}
`

var vacancyDetailQuery = `
query VacancyDetail($id: ID!) {
  vacancy(id: $id) {
    id
    title
    profession
    specializations
    municipality
    region
    jobStartsAt
    jobEndsAt
    lastApplicationDate
    createdAt
    procuredAmount
    procuredAmountCurrency
    tender {
      id
      title
      announcedAt
      scope
      dynamicStatus
      fillRate
      unit {
        id
        name
        municipality
      }
      orderer {
        id
        displayName
      }
      shifts {
        id
        startsAt
        endsAt
        shiftType
        isUrgent
      }
      requirements {
        id
        category
        description
        isMandatory
      }
      priceRows {
        id
        priceType
        amount
        currency
      }
    }
  }
}
`
