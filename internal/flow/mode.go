package flow

// Mode selects the spent-entry retention policy (spec §4.E). It is
// fixed at first index creation; changing it requires a reindex.
type Mode int

const (
	// ModeFull hard-deletes an OutputEntry the instant it is spent,
	// shadowing the pre-spend entry into a separate undo record that a
	// later DisconnectBlock restores from (and then erases in turn).
	ModeFull Mode = iota
	// ModeRewriteSpent flips spent entries to spent=true and keeps
	// them; required for currentLocationOf.
	ModeRewriteSpent
	// ModePrune physically deletes spent entries after the pending-
	// prune horizon; breaks currentLocationOf.
	ModePrune
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeRewriteSpent:
		return "rewrite-spent"
	case ModePrune:
		return "prune"
	default:
		return "unknown"
	}
}
