package vm

import (
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	StepNone

	// StepSampled calls OnStep every N instructions.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with call and return events enabled.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives VM execution events. It can be used for tracing,
// profiling or coverage without modifying the dispatch loop.
//
// Observer methods are called synchronously during execution. Returning
// false from any of them halts the VM.
type Observer interface {
	// Config returns the observer's configuration. It is read once, when the
	// VM starts running.
	Config() ObserverConfig

	// OnStep is called before an instruction executes.
	OnStep(event StepEvent) bool

	// OnCall is called after a frame is pushed for a user function.
	OnCall(event CallEvent) bool

	// OnReturn is called after a function frame is popped.
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes a single instruction step.
type StepEvent struct {
	// PC is the index of the instruction in the frame's code.
	PC int

	// Opcode is the operation about to execute.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// Location is the source position of the instruction.
	Location errz.SourceLocation

	// StackDepth is the height of the shared operand stack.
	StackDepth int

	// FrameDepth is the number of live frames.
	FrameDepth int
}

// CallEvent describes a call to a user function.
type CallEvent struct {
	// FunctionName is the name of the called function.
	FunctionName string

	// ArgCount is the number of arguments, not counting a bound receiver.
	ArgCount int

	// Location is the source position of the call site.
	Location errz.SourceLocation

	// FrameDepth is the number of live frames after the call.
	FrameDepth int
}

// ReturnEvent describes a return from a user function.
type ReturnEvent struct {
	// FunctionName is the name of the returning function.
	FunctionName string

	// FrameDepth is the number of live frames after returning.
	FrameDepth int
}

// NoOpObserver is an Observer that does nothing. Embed it to implement only
// the callbacks you need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
