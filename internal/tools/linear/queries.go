package linear

const issueFields = `
  id identifier title description url priority createdAt updatedAt
  state { name }
  assignee { name displayName }
  team { key name }
  project { name }
  labels { nodes { name } }
`

const issueQuery = `query Issue($id: String!) {
  issue(id: $id) {` + issueFields + `}
}`

const createIssueMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue {` + issueFields + `}
  }
}`

const updateIssueMutation = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
  issueUpdate(id: $id, input: $input) {
    success
    issue {` + issueFields + `}
  }
}`

const teamsQuery = `query Teams($term: String!) {
  teams(filter: { or: [{ key: { eqIgnoreCase: $term } }, { name: { eqIgnoreCase: $term } }] }) {
    nodes { id key name }
  }
}`

const issueTeamQuery = `query IssueTeam($id: String!) {
  issue(id: $id) { team { id key name } }
}`

const teamStatesQuery = `query TeamStates($id: String!) {
  team(id: $id) {
    states { nodes { id name type } }
    labels { nodes { id name } }
  }
}`

const viewerQuery = `query Viewer { viewer { id name email } }`

const usersQuery = `query Users($term: String!) {
  users(filter: { or: [
    { email: { eqIgnoreCase: $term } },
    { name: { eqIgnoreCase: $term } },
    { displayName: { eqIgnoreCase: $term } }
  ] }) {
    nodes { id name email }
  }
}`

const projectsQuery = `query Projects($term: String!) {
  projects(filter: { name: { eqIgnoreCase: $term } }) { nodes { id name } }
}`
