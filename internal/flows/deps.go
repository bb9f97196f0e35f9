package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Issue    IssueDeps
	Validate ValidateDeps
	Refresh  RefreshDeps
	Revoke   RevokeDeps
	Login    LoginDeps
}
