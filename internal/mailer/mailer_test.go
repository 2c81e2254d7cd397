package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender(t *testing.T) {
	_, err := NewSMTPSender(Config{}, nil)
	assert.Error(t, err)

	s, err := NewSMTPSender(Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "noreply@example.com",
		Password: "secret",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", s.from)

	s, err = NewSMTPSender(Config{
		Host: "smtp.example.com",
		From: "sgisi@example.com",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sgisi@example.com", s.from)
}

func TestSendCode_MissingParams(t *testing.T) {
	s, err := NewSMTPSender(Config{Host: "smtp.example.com", From: "a@b.c"}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SendCode("", "123456"), ErrMissingParams)
	assert.ErrorIs(t, s.SendCode("ana@example.com", ""), ErrMissingParams)
}

func TestCodeBody(t *testing.T) {
	body := codeBody("482913")
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "5 minutos")
}
