package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	msg := &EmailMessage{
		To:           []mail.Address{{Address: "alice@school.test"}},
		TemplateName: "account_created",
		TemplateData: map[string]interface{}{
			"GivenName": "Alice",
			"Role":      "teacher",
			"Email":     "alice@school.test",
			"Password":  "s3cretPw",
		},
	}
	require.NoError(t, msg.Render("Appel"))
	assert.True(t, msg.HasRecipients())
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Hello Alice,")
	assert.Contains(t, msg.TextContent, "An Appel teacher account")
	assert.Contains(t, msg.TextContent, "password: s3cretPw")

	plain := &EmailMessage{BodyStr: "hi"}
	require.NoError(t, plain.Render("Appel"))
	assert.Equal(t, "hi", plain.TextContent)
	assert.False(t, plain.HasRecipients())

	unknown := &EmailMessage{TemplateName: "nope"}
	assert.Error(t, unknown.Render("Appel"))

	missing := &EmailMessage{TemplateName: "account_created", TemplateData: map[string]interface{}{"GivenName": "Alice"}}
	assert.Error(t, missing.Render("Appel"))
}

func TestEmailTemplatesFS(t *testing.T) {
	// the layout file starts with "_" and must still be embedded
	_, err := emailTemplatesFS.ReadFile("templates/email/_base.txt")
	require.NoError(t, err)

	msg := &EmailMessage{TemplateName: "account_created", TemplateData: map[string]interface{}{
		"GivenName": "Bruno", "Role": "parent", "Email": "bruno@family.test", "Password": "pw",
	}}
	require.NoError(t, msg.Render("Appel"))
	assert.Contains(t, msg.TextContent, "--\nAppel")
}

func TestGeneratePassword(t *testing.T) {
	pwd, err := GeneratePassword(8)
	require.NoError(t, err)
	assert.Len(t, pwd, 8)
	for _, r := range pwd {
		assert.Contains(t, passwordAlphabet, string(r))
	}
	assert.Equal(t, "alice@school.test", CleanString("  Alice@School.test ", true))
}
