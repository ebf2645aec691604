// Package chatbot answers free-text operator questions about current
// coastal status with an ordered set of keyword rules. No learning, no
// session state: every response is a pure function of the input and the
// stored readings.
package chatbot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// predictWindow is how many recent readings feed the moving-average
// sea level prediction.
const predictWindow = 20

// Responder resolves operator questions against the reading store.
type Responder struct {
	store store.Store
	rng   *rand.Rand
}

// NewResponder creates a Responder.
func NewResponder(s store.Store) *Responder {
	return &Responder{store: s, rng: rand.New(rand.NewSource(rand.Int63()))}
}

// Respond returns a reply for the given operator input. Rules are
// checked in order; the first match wins.
func (r *Responder) Respond(ctx context.Context, input string) (string, error) {
	input = strings.ToLower(input)

	readings, err := r.store.AllReadings(ctx)
	if err != nil {
		return "", err
	}
	var latest *store.Reading
	if len(readings) > 0 {
		latest = &readings[0]
	}

	switch {
	case contains(input, "hello", "hi"):
		return "Hello! I am your AI assistant. How can I help you with coastal data today?", nil

	case contains(input, "status", "how are things"):
		if latest == nil {
			return "I don't have any real-time data at the moment.", nil
		}
		return fmt.Sprintf(
			"Current status: Sea level is %.2fm, wind speed is %.0f km/h. The overall threat level is %s.",
			latest.SeaLevel, latest.WindSpeed, strings.ToUpper(string(latest.ThreatLevel))), nil

	case contains(input, "threat", "danger"):
		if latest == nil {
			return "I need more data to assess the threat level.", nil
		}
		if latest.ThreatLevel == store.ThreatHigh {
			return "The threat level is HIGH. We're seeing unusual patterns. Please check the Alerts page immediately.", nil
		}
		return fmt.Sprintf("The current threat level is %s. It is considered low at the moment.", latest.ThreatLevel), nil

	case contains(input, "predict", "forecast"):
		if len(readings) < predictWindow {
			return fmt.Sprintf("I need at least %d data points for a reliable prediction.", predictWindow), nil
		}
		var sum float64
		for _, reading := range readings[:predictWindow] {
			sum += reading.SeaLevel
		}
		prediction := sum/predictWindow + (r.rng.Float64()-0.5)*0.1
		return fmt.Sprintf("Based on recent data, the sea level is predicted to be around %.2fm in the next 6 hours.", prediction), nil

	case contains(input, "anomalies"):
		var count int
		var lastAt string
		for _, reading := range readings {
			if reading.ThreatLevel == store.ThreatHigh {
				if count == 0 {
					lastAt = reading.Timestamp.Format("2006-01-02T15:04:05")
				}
				count++
			}
		}
		if count > 0 {
			return fmt.Sprintf("I have detected %d anomalies in the data. The most recent was a spike at %s.", count, lastAt), nil
		}
		return "No significant anomalies have been detected in the recent data.", nil
	}

	return "I'm sorry, I don't understand that request. I can only answer questions related to sensor data, anomalies, and threat predictions.", nil
}

func contains(input string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}
