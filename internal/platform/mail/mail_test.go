package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/rs/zerolog"
)

type fakeSES struct {
	in  *ses.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSender(t *testing.T) {
	client := &fakeSES{}
	s := &SESSender{client: client, from: "no-reply@nutritrack.local"}

	if err := s.SendEmail(context.Background(), "nurse@example.com", "Hi", "Body"); err != nil {
		t.Fatalf("SendEmail() error: %v", err)
	}
	in := client.in
	if aws.ToString(in.Source) != "no-reply@nutritrack.local" {
		t.Errorf("unexpected source %q", aws.ToString(in.Source))
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "nurse@example.com" {
		t.Errorf("unexpected destination %v", in.Destination.ToAddresses)
	}
	if aws.ToString(in.Message.Subject.Data) != "Hi" || aws.ToString(in.Message.Body.Text.Data) != "Body" {
		t.Errorf("unexpected message")
	}

	client.err = errors.New("throttled")
	if err := s.SendEmail(context.Background(), "x@example.com", "s", "b"); err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	if err := NewLogSender(zerolog.New(&buf)).SendEmail(context.Background(), "a@example.com", "Subj", "Body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"a@example.com"`) {
		t.Errorf("expected recipient in log, got %s", buf.String())
	}
}

type recordingSender struct {
	to, subject, body string
}

func (r *recordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return nil
}

func TestMailer_SendPasswordReset(t *testing.T) {
	rec := &recordingSender{}
	m := NewMailer(rec, "NutriTrack", "https://diet.example.org/")

	if err := m.SendPasswordReset(context.Background(), "lead@example.com", "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.to != "lead@example.com" || rec.subject != "NutriTrack: Account password reset" {
		t.Errorf("unexpected envelope %q %q", rec.to, rec.subject)
	}
	if !strings.Contains(rec.body, "https://diet.example.org/api/v1/users/reset-password/abc123") {
		t.Errorf("expected reset link in body, got %q", rec.body)
	}
}
