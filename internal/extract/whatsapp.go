package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niagascore/niagascore/internal/ledger"
)

// WhatsApp exports carry one message per line with a locale-dependent
// timestamp prefix. The patterns are tried in order; first match wins.
//
//	[1/15/24, 10:30:15 AM] John: 2x nasi lemak RM12
//	15/1/2024, 10:30 - John: paid RM12 tng
var chatTimestampPatterns = []*regexp.Regexp{
	// [MM/DD/YY, HH:MM(:SS) AM/PM]
	regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2,4},\s\d{1,2}:\d{2}(?::\d{2})?\s[AP]M)\]`),
	// MM/DD/YY, HH:MM(:SS) AM/PM -
	regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4},\s\d{1,2}:\d{2}(?::\d{2})?\s[AP]M)\s-`),
	// [DD/MM/YYYY, HH:MM(:SS)] 24-hour
	regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2,4},\s\d{1,2}:\d{2}(?::\d{2})?)\]`),
	// DD/MM/YYYY, HH:MM - 24-hour
	regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4},\s\d{1,2}:\d{2})\s-`),
}

// Layouts tried in order when resolving a matched timestamp string.
// Day-first 24-hour forms come before month-first 12-hour forms.
var chatTimestampLayouts = []string{
	"2/1/2006, 15:04:05",
	"2/1/2006, 15:04",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 3:04 PM",
	"2/1/06, 15:04:05",
	"2/1/06, 15:04",
	"1/2/06, 3:04:05 PM",
	"1/2/06, 3:04 PM",
}

var chatAmountPattern = regexp.MustCompile(`(?i)RM\s?(\d+(?:\.\d{1,2})?)`)

type chatMessage struct {
	timestamp    *time.Time
	rawTimestamp string
	sender       string
	content      string
}

// ParseWhatsApp parses a WhatsApp .txt export into raw event candidates.
// Malformed lines are skipped, never fatal.
func ParseWhatsApp(data []byte) []RawEvent {
	var events []RawEvent
	for _, msg := range splitChatMessages(string(data)) {
		if msg.sender == "" || isSystemMessage(msg.content) {
			continue
		}
		amounts := chatAmountPattern.FindAllStringSubmatch(msg.content, -1)
		if len(amounts) == 0 {
			continue
		}
		eventType := classifyIntent(msg.content)
		if eventType == "" {
			continue
		}
		confidence := chatConfidence(msg.content)
		// One candidate per amount mention; shared timestamp and sender.
		for _, m := range amounts {
			amt, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			events = append(events, RawEvent{
				Timestamp:    msg.timestamp,
				RawTimestamp: msg.rawTimestamp,
				Amount:       amount(amt),
				Currency:     ledger.DefaultCurrency,
				Description:  truncate(msg.content, 200),
				Channel:      ledger.ChannelWhatsApp,
				EventType:    eventType,
				Confidence:   confidence,
				RawText:      msg.content,
				Metadata:     map[string]string{"sender": msg.sender},
			})
		}
	}
	return events
}

func splitChatMessages(text string) []chatMessage {
	var messages []chatMessage
	for _, line := range strings.Split(text, "\n") {
		for _, pattern := range chatTimestampPatterns {
			m := pattern.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			tsStr := line[m[2]:m[3]]
			remainder := strings.Trim(line[m[1]:], " :-]")
			parts := strings.SplitN(remainder, ":", 2)
			if len(parts) == 2 {
				msg := chatMessage{
					sender:  strings.TrimSpace(parts[0]),
					content: strings.TrimSpace(parts[1]),
				}
				if ts, ok := parseChatTimestamp(tsStr); ok {
					msg.timestamp = &ts
				} else {
					msg.rawTimestamp = tsStr
				}
				messages = append(messages, msg)
			}
			break
		}
	}
	return messages
}

func parseChatTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range chatTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// classifyIntent maps message text to an event type. Payment keywords take
// precedence over order keywords; no match drops the message.
func classifyIntent(text string) ledger.EventType {
	lower := strings.ToLower(text)
	for _, kw := range rules().Chat.PaymentKeywords {
		if strings.Contains(lower, kw) {
			return ledger.EventPayment
		}
	}
	for _, kw := range rules().Chat.OrderKeywords {
		if strings.Contains(lower, kw) {
			return ledger.EventOrder
		}
	}
	return ""
}

func isSystemMessage(content string) bool {
	lower := strings.ToLower(content)
	for _, ind := range rules().Chat.SystemMessages {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// chatConfidence starts from the unstructured-text base and adds boosts for
// a stated amount and keyword density, capped at 1.0.
func chatConfidence(content string) float64 {
	score := 0.3
	if chatAmountPattern.MatchString(content) {
		score += 0.2
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, kw := range rules().Chat.PaymentKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	for _, kw := range rules().Chat.OrderKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	boost := float64(hits) * 0.1
	if boost > 0.3 {
		boost = 0.3
	}
	score += boost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
