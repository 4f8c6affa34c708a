package model

import "errors"

var (
	ErrConfigurationInvalid = errors.New("configuration invalid")
	ErrWAFAcquisitionFailed = errors.New("waf cookie acquisition failed")
	ErrNetworkFailure       = errors.New("network failure")
	ErrResponseUnrecognized = errors.New("response not recognized")
	ErrTransportUnavailable = errors.New("notification transport unavailable")
)
