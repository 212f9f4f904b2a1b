package core

// RolloverFlag records whether a month has already been considered for a
// budget rollover. The flag is idempotent per month: once set, the prompt
// never fires again for that month regardless of the user's answer.
type RolloverFlag string

const (
	RolloverUnseen   RolloverFlag = ""
	RolloverChecked  RolloverFlag = "checked"  // prior month had nothing to copy
	RolloverPrompted RolloverFlag = "prompted" // user was asked once
)

// DecideRollover implements the auto-copy policy for a freshly loaded month.
// current is the stored budget set for the target month, previous the set of
// the calendar month before it. It returns the flag to record for the target
// month and whether to prompt the user now. The flag is recorded at prompt
// time, before any answer, so declining still suppresses future prompts.
func DecideRollover(flag RolloverFlag, current, previous map[string]int64) (RolloverFlag, bool) {
	if len(current) > 0 {
		// Month already has budgets; nothing to offer, flag unchanged.
		return flag, false
	}
	if flag != RolloverUnseen {
		return flag, false
	}
	if len(previous) == 0 {
		return RolloverChecked, false
	}
	return RolloverPrompted, true
}
