package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/shortformfactory/checkout-service/internal/email"
	"github.com/shortformfactory/checkout-service/internal/events"
)

func main() {
	log.Println("Email worker starting...")
	startConsumer()
}

func startConsumer() {
	brokers := splitAndTrim(getenv("KAFKA_BROKERS", "localhost:9092"))
	topic := getenv("KAFKA_SETTLEMENTS_TOPIC", "settlements.v1")
	group := getenv("KAFKA_EMAIL_GROUP_ID", "email-workers")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1e3, MaxBytes: 10e6,
	})
	defer reader.Close()

	sender := pickSender()
	log.Printf("[email-worker] consuming %s (group=%s)", topic, group)
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("[email-worker] read error: %v", err)
			return
		}

		var evt events.Envelope
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("[email-worker] bad json: %v; payload=%s", err, string(msg.Value))
			continue
		}

		switch evt.EventType {
		case events.TypeSettlementRecorded:
			handleSettlementRecorded(sender, evt)
		default:
			// only settlements produce buyer email
		}
	}
}

func handleSettlementRecorded(sender email.Sender, evt events.Envelope) {
	data := toMap(evt.Data)
	orderID := toString(data["orderId"])
	captureID := toString(data["captureId"])
	amount := toString(data["amount"])
	currency := toString(data["currency"])
	service := toString(data["service"])
	tier := toString(data["package"])

	to := toString(data["payerEmail"])
	if to == "" {
		to = getenv("DEMO_TO_EMAIL", "test@example.local")
	}

	body := email.RenderSettlementEmail(orderID, captureID, amount, currency, service, tier)
	if err := sender.Send(to, "Your ShortFormFactory payment confirmation", body); err != nil {
		log.Printf("[email-worker] send failed: %v", err)
		return
	}

	log.Printf("[email-worker] sent settlement email to=%s order=%s amount=%s %s", to, orderID, currency, amount)
}

func pickSender() email.Sender {
	// Use SMTP if configured; else fallback to log
	if os.Getenv("SMTP_HOST") != "" || os.Getenv("SMTP_PORT") != "" {
		return email.NewSMTPSender()
	}
	return email.LogSender{}
}

// helpers
func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func toMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
