/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package notification delivers alert messages to the configured outbound
// channels. A channel failure is logged and never propagated; one broken
// channel must not silence the others.
package notification

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/request"
)

// Message is the structured alert handed to every channel.
type Message struct {
	Subject  string
	Lines    []string
	Severity string
	Link     string
}

// Channel delivers one message to one destination.
type Channel interface {
	Name() string
	Send(msg Message) error
}

// ChannelsFromConfig builds the channel list from the alerting section.
// Unconfigured channels are simply absent.
func ChannelsFromConfig(cnf *config.Configuration) []Channel {
	var channels []Channel
	if cnf.Alerting.Slack.WebhookUrl != "" {
		channels = append(channels, &SlackChannel{WebhookUrl: cnf.Alerting.Slack.WebhookUrl})
	}
	if cnf.Alerting.Mail.Host != "" && len(cnf.Alerting.Mail.To) > 0 {
		channels = append(channels, &MailChannel{Conf: cnf.Alerting.Mail})
	}
	return channels
}

// Dispatch fans the message out to every channel, catching each failure
// independently. Returns the number of successful deliveries.
func Dispatch(channels []Channel, msg Message) int {
	sent := 0
	for _, ch := range channels {
		if err := ch.Send(msg); err != nil {
			logrus.Errorf("notification channel %s failed: %v", ch.Name(), err)
			continue
		}
		sent++
	}
	return sent
}

// SlackChannel posts Block Kit formatted messages to an incoming webhook.
type SlackChannel struct {
	WebhookUrl string
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(msg Message) error {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s 🚨", msg.Subject),
				"emoji": true,
			},
		},
		{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": strings.Join(msg.Lines, "\n"),
			},
		},
	}
	if msg.Link != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("<%s|View attempt>", msg.Link),
			},
		})
	}

	// Slack webhooks shed load occasionally, retry a couple of times
	// before giving up. The payload buffer is rebuilt per attempt because
	// the request body consumes it.
	operation := func() error {
		payload, err := request.ToJsonReq(map[string]interface{}{"blocks": blocks})
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequest("POST", s.WebhookUrl, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		var response interface{}
		resp, err := request.Call(req, &response)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	return backoff.Retry(operation, policy)
}

// MailChannel sends the alert over SMTP to the configured recipients.
type MailChannel struct {
	Conf config.MailConfig
}

func (m *MailChannel) Name() string { return "mail" }

func (m *MailChannel) Send(msg Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.Conf.From)
	mail.SetHeader("To", m.Conf.To...)
	mail.SetHeader("Subject", fmt.Sprintf("[%s] %s", strings.ToUpper(msg.Severity), msg.Subject))

	body := strings.Join(msg.Lines, "\n")
	if msg.Link != "" {
		body = body + "\n\n" + msg.Link
	}
	mail.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Conf.Host, m.Conf.Port, m.Conf.Username, m.Conf.Password)
	dialer.SSL = m.Conf.Port == 465

	return dialer.DialAndSend(mail)
}

// defaultSubject keeps channel payloads consistent when the caller does not
// set one.
func defaultSubject(service, event string) string {
	return fmt.Sprintf("Webhook failures for %s/%s", service, event)
}

// NewFailureMessage builds the standard alert body from a failing attempt.
func NewFailureMessage(service, event, attemptID, errorMessage string, failures int, dashboardUrl string) Message {
	msg := Message{
		Subject:  defaultSubject(service, event),
		Severity: "error",
		Lines: []string{
			fmt.Sprintf("*Service:* %s", service),
			fmt.Sprintf("*Event:* %s", event),
			fmt.Sprintf("*Failures in window:* %d", failures),
			fmt.Sprintf("*Last error:* %s", errorMessage),
			fmt.Sprintf("*Time:* %s", time.Now().Format(time.RFC822)),
		},
	}
	if dashboardUrl != "" && attemptID != "" {
		msg.Link = fmt.Sprintf("%s/attempts/%s", strings.TrimRight(dashboardUrl, "/"), attemptID)
	}
	return msg
}
