package realtime

import "github.com/uber-go/tally"

type metrics struct {
	connectionsAccepted  tally.Counter
	authRejected         tally.Counter
	framesMalformed      tally.Counter
	methodNotFound       tally.Counter
	notificationsSent    tally.Counter
	notificationsDropped tally.Counter
	peers                tally.Gauge
}

func newMetrics(scope tally.Scope) *metrics {
	return &metrics{
		connectionsAccepted:  scope.Counter("connections_accepted"),
		authRejected:         scope.Counter("auth_rejected"),
		framesMalformed:      scope.Counter("frames_malformed"),
		methodNotFound:       scope.Counter("method_not_found"),
		notificationsSent:    scope.Counter("notifications_sent"),
		notificationsDropped: scope.Counter("notifications_dropped"),
		peers:                scope.Gauge("peers"),
	}
}
