package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	ticket := MustTicket(`{"_id":"t-1","ticketName":"CHARITY"}`)

	env, err := NewEnvelope("0f8fad5b-d9cb-469f-a165-70867728950e", "seller-1", ModeProd, ticket)
	require.NoError(t, err)

	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", env.ID)
	assert.Equal(t, "seller-1", env.SellerID)
	assert.Equal(t, "historical-sync-0f8fad5b", env.WebhookID)
	assert.Equal(t, EventTypeTicketCreated, env.Type)
	assert.Equal(t, ModeProd, env.Mode)
	assert.Equal(t, "t-1", env.TicketID())
}

func TestNewEnvelope_ShortID(t *testing.T) {
	env, err := NewEnvelope("abc", "", ModeTest, MustTicket(`{"_id":"t-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "historical-sync-abc", env.WebhookID)
}

func TestNewEnvelope_Invalid(t *testing.T) {
	ticket := MustTicket(`{"_id":"t-1"}`)

	_, err := NewEnvelope("", "s", ModeProd, ticket)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewEnvelope("id", "s", ModeProd, Ticket{})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewEnvelope("id", "s", "staging", ticket)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestEnvelope_MarshalNestsTicketUnderData(t *testing.T) {
	ticket := MustTicket(`{"_id":"t-1","status":"VALID","custom":{"a":1}}`)
	env, err := NewEnvelope("id-123456789", "seller-1", ModeProd, ticket)
	require.NoError(t, err)

	out, err := json.Marshal(env)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id":"id-123456789",
		"sellerId":"seller-1",
		"webhookId":"historical-sync-id-12345",
		"type":"ticket.created",
		"mode":"prod",
		"data":{"ticket":{"_id":"t-1","status":"VALID","custom":{"a":1}}}
	}`, string(out))
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(ModeProd))
	assert.True(t, ValidMode(ModeDev))
	assert.True(t, ValidMode(ModeTest))
	assert.False(t, ValidMode("PROD"))
	assert.False(t, ValidMode(""))
}
