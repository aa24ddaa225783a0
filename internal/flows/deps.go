package flows

// Deps groups flow dependency sets. The root engine builds this once at
// construction time and delegates request methods to the matching flow
// implementation.
type Deps struct {
	Rotate       RotateDeps
	IssueRefresh IssueRefreshDeps
	Revoke       RevokeDeps
}
