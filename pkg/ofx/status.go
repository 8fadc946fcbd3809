package ofx

// Status is the code returned across the plugin boundary
type Status int

// Status codes, numbered as the native API numbers them
const (
	StatOK                    Status = 0
	StatFailed                Status = 1
	StatErrFatal              Status = 2
	StatErrUnknown            Status = 3
	StatErrMissingHostFeature Status = 4
	StatErrUnsupported        Status = 5
	StatErrExists             Status = 6
	StatErrFormat             Status = 7
	StatErrMemory             Status = 8
	StatErrBadHandle          Status = 9
	StatErrBadIndex           Status = 10
	StatErrValue              Status = 11
	StatReplyYes              Status = 12
	StatReplyNo               Status = 13
	StatReplyDefault          Status = 14
	StatErrImageFormat        Status = 1000
)

var statusNames = map[Status]string{
	StatOK:                    "kOfxStatOK",
	StatFailed:                "kOfxStatFailed",
	StatErrFatal:              "kOfxStatErrFatal",
	StatErrUnknown:            "kOfxStatErrUnknown",
	StatErrMissingHostFeature: "kOfxStatErrMissingHostFeature",
	StatErrUnsupported:        "kOfxStatErrUnsupported",
	StatErrExists:             "kOfxStatErrExists",
	StatErrFormat:             "kOfxStatErrFormat",
	StatErrMemory:             "kOfxStatErrMemory",
	StatErrBadHandle:          "kOfxStatErrBadHandle",
	StatErrBadIndex:           "kOfxStatErrBadIndex",
	StatErrValue:              "kOfxStatErrValue",
	StatReplyYes:              "kOfxStatReplyYes",
	StatReplyNo:               "kOfxStatReplyNo",
	StatReplyDefault:          "kOfxStatReplyDefault",
	StatErrImageFormat:        "kOfxStatErrImageFormat",
}

// String maps a status to its symbolic name
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN STATUS CODE"
}

// IsSuccess reports whether s is one of the non-error replies
func (s Status) IsSuccess() bool {
	switch s {
	case StatOK, StatReplyYes, StatReplyNo, StatReplyDefault:
		return true
	}
	return false
}

// CheckStatus returns nil for the non-error replies and an *Error carrying the
// status otherwise.
func CheckStatus(stat Status) error {
	if stat.IsSuccess() {
		return nil
	}
	return &Error{Kind: kindForStatus(stat), Status: stat}
}
