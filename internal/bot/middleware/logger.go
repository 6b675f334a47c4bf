package middleware

import (
	log "github.com/sirupsen/logrus"
)

// LogTrigger logs one inbound trigger event. Long payloads are truncated;
// only the first 50 characters matter for tracing.
func LogTrigger(source, userID, channelID, payload string) {
	if len(payload) > 50 {
		payload = payload[:50] + "..."
	}

	log.WithFields(log.Fields{
		"source":     source,
		"user_id":    userID,
		"channel_id": channelID,
		"payload":    payload,
	}).Debug("inbound trigger")
}
