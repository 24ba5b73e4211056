// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mi

// ResponseKind tags the variant of a Response. Consumers switch on it.
type ResponseKind int

const (
	KindExecAsync ResponseKind = iota
	KindStatusAsync
	KindNotifyAsync
	KindConsoleStream
	KindTargetStream
	KindLogStream
	KindResult
	KindTermination
)

func (k ResponseKind) String() string {
	switch k {
	case KindExecAsync:
		return "exec"
	case KindStatusAsync:
		return "status"
	case KindNotifyAsync:
		return "notify"
	case KindConsoleStream:
		return "console"
	case KindTargetStream:
		return "target"
	case KindLogStream:
		return "log"
	case KindResult:
		return "result"
	case KindTermination:
		return "prompt"
	default:
		return "unknown"
	}
}

// IsAsync reports whether the kind is one of the three async record kinds.
func (k ResponseKind) IsAsync() bool {
	return k == KindExecAsync || k == KindStatusAsync || k == KindNotifyAsync
}

// IsStream reports whether the kind is one of the three stream record kinds.
func (k ResponseKind) IsStream() bool {
	return k == KindConsoleStream || k == KindTargetStream || k == KindLogStream
}

// ResultClass is the class of a result record.
type ResultClass int

const (
	ResultUnknown ResultClass = iota
	ResultDone
	ResultRunning
	ResultConnected
	ResultError
	ResultExit
)

var resultClasses = map[string]ResultClass{
	"done":      ResultDone,
	"running":   ResultRunning,
	"connected": ResultConnected,
	"error":     ResultError,
	"exit":      ResultExit,
}

func (c ResultClass) String() string {
	switch c {
	case ResultDone:
		return "done"
	case ResultRunning:
		return "running"
	case ResultConnected:
		return "connected"
	case ResultError:
		return "error"
	case ResultExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ParseResultClass maps a result class name to its enum value.
func ParseResultClass(name string) (ResultClass, bool) {
	c, ok := resultClasses[name]
	return c, ok
}

// AsyncClass is the reason carried by an exec, status or notify record.
type AsyncClass int

const (
	AsyncNone AsyncClass = iota
	AsyncRunning
	AsyncStopped
	AsyncDownload
	AsyncThreadGroupAdded
	AsyncThreadGroupRemoved
	AsyncThreadGroupStarted
	AsyncThreadGroupExited
	AsyncThreadCreated
	AsyncThreadExited
	AsyncThreadSelected
	AsyncLibraryLoaded
	AsyncLibraryUnloaded
	AsyncTraceframeChanged
	AsyncTsvCreated
	AsyncTsvDeleted
	AsyncTsvModified
	AsyncBreakpointCreated
	AsyncBreakpointModified
	AsyncBreakpointDeleted
	AsyncRecordStarted
	AsyncRecordStopped
	AsyncCmdParamChanged
	AsyncMemoryChanged
)

var asyncClassNames = []string{
	AsyncNone:               "",
	AsyncRunning:            "running",
	AsyncStopped:            "stopped",
	AsyncDownload:           "download",
	AsyncThreadGroupAdded:   "thread-group-added",
	AsyncThreadGroupRemoved: "thread-group-removed",
	AsyncThreadGroupStarted: "thread-group-started",
	AsyncThreadGroupExited:  "thread-group-exited",
	AsyncThreadCreated:      "thread-created",
	AsyncThreadExited:       "thread-exited",
	AsyncThreadSelected:     "thread-selected",
	AsyncLibraryLoaded:      "library-loaded",
	AsyncLibraryUnloaded:    "library-unloaded",
	AsyncTraceframeChanged:  "traceframe-changed",
	AsyncTsvCreated:         "tsv-created",
	AsyncTsvDeleted:         "tsv-deleted",
	AsyncTsvModified:        "tsv-modified",
	AsyncBreakpointCreated:  "breakpoint-created",
	AsyncBreakpointModified: "breakpoint-modified",
	AsyncBreakpointDeleted:  "breakpoint-deleted",
	AsyncRecordStarted:      "record-started",
	AsyncRecordStopped:      "record-stopped",
	AsyncCmdParamChanged:    "cmd-param-changed",
	AsyncMemoryChanged:      "memory-changed",
}

var asyncClasses = func() map[string]AsyncClass {
	m := make(map[string]AsyncClass, len(asyncClassNames))
	for i, name := range asyncClassNames {
		if name != "" {
			m[name] = AsyncClass(i)
		}
	}
	return m
}()

func (c AsyncClass) String() string {
	if c < 0 || int(c) >= len(asyncClassNames) {
		return "unknown"
	}
	return asyncClassNames[c]
}

// ParseAsyncClass maps an async class name to its enum value.
func ParseAsyncClass(name string) (AsyncClass, bool) {
	c, ok := asyncClasses[name]
	return c, ok
}

// Response is one parsed output record.
//
// Which fields are meaningful depends on Kind: Reason and Items for async
// records, Result and Items for result records, Text for stream records.
// Termination records carry no payload.
type Response struct {
	Kind   ResponseKind
	Result ResultClass
	Reason AsyncClass
	Items  Item
	Text   string

	// Raw is the output line the record was parsed from, when known.
	Raw string

	// Causal is the number of the command this record belongs to, either
	// echoed on the line or inherited from the previous record.
	Causal    int
	HasCausal bool

	// UserData is the value supplied by the caller that sent the command.
	UserData any
}

// IsError reports whether the response is an ^error result.
func (r *Response) IsError() bool {
	return r.Kind == KindResult && r.Result == ResultError
}

// ErrorMessage returns the msg field of an ^error result.
func (r *Response) ErrorMessage() string {
	if !r.IsError() {
		return ""
	}
	return r.Items.Get("msg")
}
