package harmonic

// enrichCompanyMutation requests every company field the mapper reads.
// Employees are limited to founders, active or not.
const enrichCompanyMutation = `
mutation($identifiers: CompanyEnrichmentIdentifiersInput!) {
  enrichCompanyByIdentifiers(identifiers: $identifiers) {
    companyFound
    company {
      entityUrn
      website { url domain }
      description
      foundingDate { date granularity }
      funding {
        fundingTotal
        fundingStage
        numFundingRounds
        lastFundingAt
        investors {
          ... on Company { name }
          ... on Person { fullName }
        }
      }
      customerType
      headcount
      stage
      highlights { category text }
      employeeHighlights { category text }
      location { location addressFormatted }
      tags { displayValue type }
      tagsV2 { displayValue type }
      tractionMetrics {
        headcountAdvisor { latestMetricValue }
        facebookFollowerCount { latestMetricValue }
        linkedinFollowerCount { latestMetricValue }
        instagramFollowerCount { latestMetricValue }
        twitterFollowerCount { latestMetricValue }
      }
      webTraffic
      likelihoodOfBacking
      employees(employeeSearchInput: {employeeGroupType: FOUNDERS, employeeStatus: ACTIVE_AND_NOT_ACTIVE}) {
        entityUrn
        fullName
        experience { roleType title companyName }
        highlights { category text }
        socials { linkedin { url followerCount } }
        education { school { name } degree }
        contact { emails phoneNumbers }
      }
    }
  }
}
`
