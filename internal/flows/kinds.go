package flows

// FailureKind classifies flow failures for root-level mapping.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureExpired
	FailureMalformed
	FailureRevoked
	FailurePrincipalNotFound
	FailurePrincipalInactive
	FailureStoreUnavailable
	FailureTypeMismatch
	FailureInvalidCredentials
	FailureEncode
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureExpired:
		return "expired"
	case FailureMalformed:
		return "malformed"
	case FailureRevoked:
		return "revoked"
	case FailurePrincipalNotFound:
		return "principal_not_found"
	case FailurePrincipalInactive:
		return "principal_inactive"
	case FailureStoreUnavailable:
		return "store_unavailable"
	case FailureTypeMismatch:
		return "type_mismatch"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// Principal is the view of a resolved principal the flows need.
type Principal interface {
	Usable() bool
}

// ExistenceOutcome reports what the existence cache said during resolution.
type ExistenceOutcome int

const (
	ExistenceSkipped ExistenceOutcome = iota
	ExistenceHit
	ExistenceMiss
)
