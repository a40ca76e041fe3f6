package usecase_test

import (
	"context"
	"sync"

	"social-dashboard/domain/model"
)

type sentEmail struct {
	To, Subject, Template string
	Data                  map[string]interface{}
}

type fakeNotifier struct {
	mu         sync.Mutex
	emails     []sentEmail
	webhooks   []interface{}
	emailErr   error
	webhookErr error

	// set together: PostWebhook signals entered and then waits for release
	webhookEntered chan struct{}
	webhookRelease chan struct{}
}

func (f *fakeNotifier) SendEmail(_ context.Context, to, subject, templateID string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailErr != nil {
		return f.emailErr
	}
	f.emails = append(f.emails, sentEmail{To: to, Subject: subject, Template: templateID, Data: data})
	return nil
}

func (f *fakeNotifier) PostWebhook(_ context.Context, _ string, payload interface{}) error {
	if f.webhookEntered != nil {
		f.webhookEntered <- struct{}{}
		<-f.webhookRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.webhookErr != nil {
		return f.webhookErr
	}
	f.webhooks = append(f.webhooks, payload)
	return nil
}

func (f *fakeNotifier) Emails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.emails...)
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	raised   []*model.MonitoringAlert
	resolved []*model.MonitoringAlert
}

func (f *fakeBroadcaster) BroadcastAlert(a *model.MonitoringAlert) {
	f.mu.Lock()
	f.raised = append(f.raised, a)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) BroadcastResolved(a *model.MonitoringAlert) {
	f.mu.Lock()
	f.resolved = append(f.resolved, a)
	f.mu.Unlock()
}

type fakeEventStream struct {
	published []*model.MonitoringAlert
	err       error
}

func (f *fakeEventStream) PublishAlert(_ context.Context, a *model.MonitoringAlert) error {
	f.published = append(f.published, a)
	return f.err
}
