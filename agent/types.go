package agent

import (
	"time"

	"github.com/tbxark/estimagent/types"
)

// Step names a state of the dialogue state machine.
type Step string

const (
	StepStart           Step = "start"
	StepClassifyInput   Step = "classify_input"
	StepAnalyzeImage    Step = "analyze_image"
	StepExtractInfo     Step = "extract_info"
	StepRoute           Step = "route"
	StepAskQuestion     Step = "ask_question"
	StepComputeEstimate Step = "compute_estimate"
	StepRespond         Step = "respond"
	StepHalt            Step = "halt"
)

// OutcomeError labels turns that ended in the apology path.
const OutcomeError = "error"

// ProfileSource resolves a service name to its pricing profile.
type ProfileSource interface {
	Profile(name string) (types.ServiceProfile, bool)
}

// StaticProfiles is a ProfileSource over a fixed map.
type StaticProfiles map[string]types.ServiceProfile

func (p StaticProfiles) Profile(name string) (types.ServiceProfile, bool) {
	profile, ok := p[name]
	return profile, ok
}

// Recorder receives turn level measurements.
type Recorder interface {
	ObserveTurn(outcome string, d time.Duration)
	IncEstimate(service string)
	IncCollaboratorFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTurn(string, time.Duration) {}
func (nopRecorder) IncEstimate(string)                {}
func (nopRecorder) IncCollaboratorFailure(string)     {}
