package mailx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/eduflowhub/eduflow/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var from = From{Name: "EduFlow Hub", Address: "no-reply@eduflow.com"}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		err  error
	}{
		{"ok", Message{To: "a@x.com", Text: "hi"}, nil},
		{"html only", Message{To: "a@x.com", HTML: "<p>hi</p>"}, nil},
		{"no recipient", Message{Text: "hi"}, ErrNoRecipient},
		{"no body", Message{To: "a@x.com", Subject: "s"}, ErrNoBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.validate()
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}

	require.Error(t, Message{To: "not an address", Text: "hi"}.validate())
}

func TestSMTP_Send(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	s := NewSMTP("sandbox.smtp.mailtrap.io", 2525, "user", "pass", from)
	s.Now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	s.send = func(addr string, a smtp.Auth, f string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, f, to, msg
		return nil
	}

	err := s.Send(context.Background(), Message{
		To:      "mai@eduflow.com",
		Subject: "Xác minh email",
		Text:    "code 12345",
		HTML:    "<b>12345</b>",
	})
	require.NoError(t, err)
	require.Equal(t, "sandbox.smtp.mailtrap.io:2525", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, "no-reply@eduflow.com", gotFrom)
	require.Equal(t, []string{"mai@eduflow.com"}, gotTo)

	parsed, err := mail.ReadMessage(bytes.NewReader(gotMsg))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	require.Equal(t, "Xác minh email", subject)
	require.Contains(t, parsed.Header.Get("From"), "no-reply@eduflow.com")

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		types = append(types, p.Header.Get("Content-Type"))
		bodies = append(bodies, string(b))
	}
	require.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
	require.Equal(t, []string{"code 12345", "<b>12345</b>"}, bodies)
}

func TestSMTP_SendErrors(t *testing.T) {
	s := NewSMTP("localhost", 1025, "", "", from)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), Message{To: "a@x.com", Text: "hi"})
	require.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Send(ctx, Message{To: "a@x.com", Text: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSES_Send(t *testing.T) {
	api := &fakeSES{}
	s := &SES{From: from, client: api}

	err := s.Send(context.Background(), Message{To: "mai@eduflow.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Equal(t, []string{"mai@eduflow.com"}, api.in.Destination.ToAddresses)
	require.Equal(t, "Hi", *api.in.Content.Simple.Subject.Data)
	require.Nil(t, api.in.Content.Simple.Body.Text)
	require.Equal(t, "<p>hi</p>", *api.in.Content.Simple.Body.Html.Data)
	require.Contains(t, *api.in.FromEmailAddress, "no-reply@eduflow.com")

	api.err = errors.New("throttled")
	require.ErrorContains(t, s.Send(context.Background(), Message{To: "a@x.com", Text: "x"}), "throttled")
}

func TestNewSES_AppliesRegionAndCredentials(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var lo config.LoadOptions
	loadDefaultAWSConfig = func(_ context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{Region: lo.Region}, nil
	}

	s, err := NewSES(context.Background(), SESConfig{
		Region:          "ap-southeast-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
	}, from)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, "ap-southeast-1", lo.Region)
	require.NotNil(t, lo.Credentials)

	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}
	_, err = NewSES(context.Background(), SESConfig{Region: "x"}, from)
	require.ErrorContains(t, err, "no profile")
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogx.WithContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, Log{}.Send(ctx, Message{To: "a@x.com", Subject: "Verify", Text: "code 12345"}))
	require.Contains(t, buf.String(), "a@x.com")
	require.False(t, strings.Contains(buf.String(), "12345"), "bodies are not logged")
}
