package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// fetch
	FetInfo         Code = 4000
	FetLoadFailed   Code = 4001
	FetBadURL       Code = 4002
	FetDecodeFailed Code = 4003

	// transform
	TrnInfo         Code = 5000
	TrnSyntaxError  Code = 5001
	TrnEngineFailed Code = 5002

	// execute
	ExeInfo        Code = 6000
	ExeThrown      Code = 6001
	ExeUnavailable Code = 6002

	// run
	RunAdvisory Code = 7001
	RunAborted  Code = 7002
	RunTimings  Code = 7003
)

var codeDescription = map[Code]string{
	UnknownCode:     "Unknown error",
	FetInfo:         "Fetch information",
	FetLoadFailed:   "Could not load script",
	FetBadURL:       "Invalid script URL",
	FetDecodeFailed: "Could not decode script body",
	TrnInfo:         "Transform information",
	TrnSyntaxError:  "Syntax error",
	TrnEngineFailed: "Transform engine failure",
	ExeInfo:         "Execution information",
	ExeThrown:       "Uncaught exception",
	ExeUnavailable:  "Evaluation unavailable",
	RunAdvisory:     "In-process transformer in use",
	RunAborted:      "Run aborted",
	RunTimings:      "Run timings",
}

// ID returns the stable string form, e.g. "TRN5001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("FET%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("TRN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("EXE%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("RUN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if s, ok := codeDescription[c]; ok {
		return s
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
