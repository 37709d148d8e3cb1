package notify

// AlertKind distinguishes user-facing alerts.
type AlertKind int

const (
	// AlertNoInternet asks the user to check the connection and retry.
	AlertNoInternet AlertKind = iota + 1
	// AlertError carries a displayable error message.
	AlertError
)

// Alert is a user-facing notification.
type Alert struct {
	Kind    AlertKind
	Message string
}

// NoInternet returns the offline alert.
func NoInternet() Alert {
	return Alert{Kind: AlertNoInternet, Message: "Please check your connection and try again."}
}

// Error returns an error alert with msg.
func Error(msg string) Alert {
	return Alert{Kind: AlertError, Message: msg}
}

// Title returns the alert title.
func (a Alert) Title() string {
	if a.Kind == AlertNoInternet {
		return "No Internet"
	}
	return "Error"
}
