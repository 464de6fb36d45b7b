package sync_engine

import (
	"agent-datahub/service/models"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(hub *fakeHub) *SampleVerifier {
	return NewSampleVerifier(hub, 0, rand.New(rand.NewSource(42)), nil)
}

func TestVerifyRandom_EmptyRecords(t *testing.T) {
	hub := newFakeHub()
	res := newTestVerifier(hub).VerifyRandom(context.Background(), "members", nil, 5)

	assert.True(t, res.OK)
	assert.Zero(t, res.Checked)
	assert.Empty(t, hub.verifyCalls)
}

func TestVerifyRandom_SampleBound(t *testing.T) {
	hub := newFakeHub()
	records := makeRows(100, 1)
	for _, r := range records {
		hub.stored[idKey(r["id"])] = true
	}
	v := newTestVerifier(hub)

	res := v.VerifyRandom(context.Background(), "members", records, 5)
	assert.True(t, res.OK)
	assert.Equal(t, 5, res.Checked)
	assert.Equal(t, 5, res.Found)
	require.Len(t, hub.verifyCalls, 1)
	assert.Len(t, hub.verifyCalls[0], 5)

	small := makeRows(3, 1)
	res = v.VerifyRandom(context.Background(), "members", small, 5)
	assert.Equal(t, 3, res.Checked)
	assert.Len(t, hub.verifyCalls[1], 3)
}

func TestVerifyRandom_DefaultSampleSize(t *testing.T) {
	hub := newFakeHub()
	res := newTestVerifier(hub).VerifyRandom(context.Background(), "members", makeRows(20, 1), 0)
	assert.Equal(t, DefaultVerifySampleSize, res.Checked)
}

func TestVerifyRandom_DoesNotReorderInput(t *testing.T) {
	hub := newFakeHub()
	records := makeRows(10, 1)
	newTestVerifier(hub).VerifyRandom(context.Background(), "members", records, 5)
	for i, r := range records {
		assert.Equal(t, i+1, r["id"])
	}
}

func TestVerifyRandom_ReportsMissing(t *testing.T) {
	hub := newFakeHub()
	records := makeRows(4, 1)
	hub.stored["1"] = true
	hub.stored["3"] = true

	res := newTestVerifier(hub).VerifyRandom(context.Background(), "bet_order", records, 4)
	assert.False(t, res.OK)
	assert.Equal(t, 4, res.Checked)
	assert.Equal(t, 2, res.Found)
	assert.ElementsMatch(t, []interface{}{2, 4}, res.Missing)
}

func TestVerifyRandom_NoIDs(t *testing.T) {
	hub := newFakeHub()
	records := []models.Row{{"name": "a"}, {"id": nil}}

	res := newTestVerifier(hub).VerifyRandom(context.Background(), "members", records, 5)
	assert.True(t, res.OK)
	assert.Zero(t, res.Checked)
	assert.Equal(t, "no IDs", res.Reason)
	assert.Empty(t, hub.verifyCalls)
}

func TestVerifyRandom_RequestFailure(t *testing.T) {
	hub := newFakeHub()
	hub.verifyErr = errors.New("timeout")

	res := newTestVerifier(hub).VerifyRandom(context.Background(), "members", makeRows(3, 1), 5)
	assert.False(t, res.OK)
	assert.Equal(t, 3, res.Checked)
	assert.Contains(t, res.Error, "verify request failed")
}

func TestIDKey(t *testing.T) {
	assert.Equal(t, idKey(123), idKey("123"))
	assert.Equal(t, idKey(float64(123)), idKey(int64(123)))
}
