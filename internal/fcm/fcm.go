// internal/fcm/fcm.go
package fcm

import (
	"context"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps FCM messaging for sync wakeup pushes.
type Client struct {
	client *messaging.Client
}

func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{}, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client init failed: %w", err)
	}

	return &Client{client: messagingClient}, nil
}

// convertDataToStringMap safely converts map[string]interface{} → map[string]string
func convertDataToStringMap(data map[string]interface{}) map[string]string {
	result := make(map[string]string)
	for k, v := range data {
		switch val := v.(type) {
		case string:
			result[k] = val
		case uint, int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
			result[k] = fmt.Sprintf("%d", val)
		case float32, float64:
			result[k] = fmt.Sprintf("%f", val)
		case bool:
			result[k] = strconv.FormatBool(val)
		default:
			result[k] = fmt.Sprintf("%v", val)
		}
	}
	return result
}

// SendToMultipleTokens pushes a data notification to a set of device
// tokens, batched to FCM's SendEach limit. Individual token failures are
// logged, not returned.
func (c *Client) SendToMultipleTokens(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := convertDataToStringMap(data)

	var messages []*messaging.Message
	for _, token := range tokens {
		messages = append(messages, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: stringData,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		})
	}

	// FCM SendEach accepts at most 500 messages per call.
	const batchSize = 500
	for i := 0; i < len(messages); i += batchSize {
		end := i + batchSize
		if end > len(messages) {
			end = len(messages)
		}

		resp, err := c.client.SendEach(ctx, messages[i:end])
		if err != nil {
			return fmt.Errorf("FCM batch[%d:%d] failed: %w", i, end, err)
		}

		for j, r := range resp.Responses {
			if !r.Success {
				log.Printf("⚠️ FCM token %s failed: %v", maskToken(tokens[i+j]), r.Error)
			}
		}
	}

	return nil
}

// maskToken hides all but last 6 chars for logging safety
func maskToken(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "..." + token[len(token)-6:]
}
