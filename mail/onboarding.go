package mail

import (
	"context"
	"fmt"
	"net/url"
)

// Onboarding emails share a small data shape consumed by the templates.
type onboardingData struct {
	Name        string
	InviterName string
	FrontendURL string
	VerifyURL   string
	InviteURL   string
}

// SendWelcome sends the post-signup welcome email.
func (s *Service) SendWelcome(ctx context.Context, name, address string) (*Receipt, error) {
	htmlBody, textBody, err := s.renderer.Render("welcome", onboardingData{
		Name:        name,
		FrontendURL: s.frontendURL,
	})
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, &Message{
		To:       []Recipient{{Name: name, Address: address}},
		Subject:  "Welcome aboard",
		HTMLBody: htmlBody,
		TextBody: textBody,
		Category: CategoryWelcome,
	})
}

// SendVerification sends the address confirmation email carrying a
// verification token.
func (s *Service) SendVerification(ctx context.Context, name, address, token string) (*Receipt, error) {
	htmlBody, textBody, err := s.renderer.Render("verification", onboardingData{
		Name:      name,
		VerifyURL: fmt.Sprintf("%s/verify?token=%s", s.frontendURL, url.QueryEscape(token)),
	})
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, &Message{
		To:       []Recipient{{Name: name, Address: address}},
		Subject:  "Verify your email address",
		HTMLBody: htmlBody,
		TextBody: textBody,
		Category: CategoryVerification,
	})
}

// SendInvite sends a team invitation on behalf of an existing user.
func (s *Service) SendInvite(ctx context.Context, inviterName, name, address, token string) (*Receipt, error) {
	htmlBody, textBody, err := s.renderer.Render("invite", onboardingData{
		Name:        name,
		InviterName: inviterName,
		InviteURL:   fmt.Sprintf("%s/invite?token=%s", s.frontendURL, url.QueryEscape(token)),
	})
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, &Message{
		To:       []Recipient{{Name: name, Address: address}},
		Subject:  fmt.Sprintf("%s invited you to join their team", inviterName),
		HTMLBody: htmlBody,
		TextBody: textBody,
		Category: CategoryInvite,
	})
}
