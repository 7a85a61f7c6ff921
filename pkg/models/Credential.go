package models

const MinPasswordLength = 4

/*
GateState describes where the owner credential gate currently is.
*/
type GateState int

const (
	GateUnprovisioned GateState = iota
	GateLocked
	GateUnlocked
)

func (s GateState) String() string {
	switch s {
	case GateUnprovisioned:
		return "unprovisioned"
	case GateLocked:
		return "locked"
	case GateUnlocked:
		return "unlocked"
	}

	return "unknown"
}

type Prompt string

const (
	PromptNone      Prompt = ""
	PromptProvision Prompt = "provision"
	PromptVerify    Prompt = "verify"
)
