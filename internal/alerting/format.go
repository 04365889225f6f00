package alerting

import (
	"fmt"
	"strings"
)

// normalizePhone prepends the default country code to numbers lacking an
// international prefix. Empty numbers stay empty; callers treat them as
// "nobody to notify", not as errors.
func normalizePhone(number, countryCode string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return countryCode + number
}

func mapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%g,%g", lat, lng)
}

func alertBody(w *Worker, a *Alert) string {
	return fmt.Sprintf("ALERT!\nWorker: %s\nHelmet: %s\nMessage: %s\nLocation: %s",
		w.Name, w.HelmetID, a.Message, mapsLink(a.Lat, a.Lng))
}

func safeFamilyBody(w *Worker) string {
	return fmt.Sprintf("Worker %s (Helmet: %s) is SAFE now.", w.Name, w.HelmetID)
}

func safeCoworkerBody(w *Worker, a *Alert) string {
	return fmt.Sprintf("SAFE\nWorker: %s\nHelmet: %s\nAcknowledged at: %s",
		w.Name, w.HelmetID, a.AcknowledgedAt.Format("2006-01-02 15:04:05"))
}
