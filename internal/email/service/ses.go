package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"

	"github.com/corvusHold/certmail/internal/config"
	edomain "github.com/corvusHold/certmail/internal/email/domain"
	sdomain "github.com/corvusHold/certmail/internal/settings/domain"
)

// sesAPI is the subset of the SES client used for sending and identity verification.
type sesAPI interface {
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
	VerifyEmailIdentity(ctx context.Context, in *ses.VerifyEmailIdentityInput, optFns ...func(*ses.Options)) (*ses.VerifyEmailIdentityOutput, error)
	GetIdentityVerificationAttributes(ctx context.Context, in *ses.GetIdentityVerificationAttributesInput, optFns ...func(*ses.Options)) (*ses.GetIdentityVerificationAttributesOutput, error)
}

// sesClients caches one SES client per region.
type sesClients struct {
	mu      sync.Mutex
	clients map[string]sesAPI
	newFn   func(ctx context.Context, region string) (sesAPI, error)
}

func newSESClients() *sesClients {
	return &sesClients{clients: map[string]sesAPI{}, newFn: loadSESClient}
}

func loadSESClient(ctx context.Context, region string) (sesAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ses.NewFromConfig(awsCfg), nil
}

func (c *sesClients) get(ctx context.Context, region string) (sesAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[region]; ok {
		return cl, nil
	}
	cl, err := c.newFn(ctx, region)
	if err != nil {
		return nil, err
	}
	c.clients[region] = cl
	return cl, nil
}

// Ensure SES implements domain.Sender
var _ edomain.Sender = (*SES)(nil)

// SES sends raw MIME messages through Amazon SES so attachments survive intact.
type SES struct {
	cfg      config.Config
	settings sdomain.Service
	clients  *sesClients
}

func NewSES(settings sdomain.Service, cfg config.Config) *SES {
	return &SES{settings: settings, cfg: cfg, clients: newSESClients()}
}

func (s *SES) Send(ctx context.Context, accountID uuid.UUID, msg edomain.Message) (string, error) {
	region, _ := s.settings.GetString(ctx, sdomain.KeySESRegion, &accountID, s.cfg.AWSRegion)
	if region == "" {
		return "", fmt.Errorf("ses: %w", edomain.ErrNotConfigured)
	}
	client, err := s.clients.get(ctx, region)
	if err != nil {
		return "", err
	}
	e, _, err := buildMIME(msg)
	if err != nil {
		return "", err
	}
	raw, err := e.Bytes()
	if err != nil {
		return "", fmt.Errorf("render mime: %w", err)
	}
	out, err := client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &sestypes.RawMessage{Data: raw},
		Source:       aws.String(msg.From),
		Destinations: []string{msg.To},
	})
	if err != nil {
		return "", fmt.Errorf("ses send failed: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// Ensure SESVerifier implements domain.Verifier
var _ edomain.Verifier = (*SESVerifier)(nil)

// SESVerifier uses SES email identities to prove sender ownership.
type SESVerifier struct {
	region  string
	clients *sesClients
}

func NewSESVerifier(cfg config.Config) *SESVerifier {
	return &SESVerifier{region: cfg.AWSRegion, clients: newSESClients()}
}

func (v *SESVerifier) RequestVerification(ctx context.Context, email string) error {
	client, err := v.clients.get(ctx, v.region)
	if err != nil {
		return err
	}
	if _, err := client.VerifyEmailIdentity(ctx, &ses.VerifyEmailIdentityInput{EmailAddress: aws.String(email)}); err != nil {
		return fmt.Errorf("ses verify identity: %w", err)
	}
	return nil
}

func (v *SESVerifier) Status(ctx context.Context, email string) (edomain.VerificationStatus, error) {
	client, err := v.clients.get(ctx, v.region)
	if err != nil {
		return "", err
	}
	out, err := client.GetIdentityVerificationAttributes(ctx, &ses.GetIdentityVerificationAttributesInput{Identities: []string{email}})
	if err != nil {
		return "", fmt.Errorf("ses identity attributes: %w", err)
	}
	attrs, ok := out.VerificationAttributes[email]
	if !ok {
		// SES keys the map by the identity as submitted; fall back to a case-insensitive match.
		for k, a := range out.VerificationAttributes {
			if strings.EqualFold(k, email) {
				attrs, ok = a, true
				break
			}
		}
	}
	if !ok {
		return edomain.StatusNotFound, nil
	}
	if attrs.VerificationStatus == sestypes.VerificationStatusSuccess {
		return edomain.StatusVerified, nil
	}
	return edomain.StatusPending, nil
}

// Ensure NoneVerifier implements domain.Verifier
var _ edomain.Verifier = NoneVerifier{}

// NoneVerifier treats every address as verified. Development only.
type NoneVerifier struct{}

func (NoneVerifier) RequestVerification(context.Context, string) error { return nil }

func (NoneVerifier) Status(context.Context, string) (edomain.VerificationStatus, error) {
	return edomain.StatusVerified, nil
}

// NewVerifier returns the verifier selected by VERIFICATION_PROVIDER.
func NewVerifier(cfg config.Config) edomain.Verifier {
	if cfg.VerificationProvider == "ses" {
		return NewSESVerifier(cfg)
	}
	return NoneVerifier{}
}
