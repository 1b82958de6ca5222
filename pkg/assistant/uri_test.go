package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadcast-assistant/ba-go/pkg/discovery"
	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

const testURI = "BLUETOOTH:UUID:184F;BN:SG9ja2V5;SQ:1;AT:1;AD:AABBCCDDEEFF;AS:1;BI:0A0B0C;PI:0190;NS:1;BS:1;;"

func TestAddSourceFromBroadcastAudioURI(t *testing.T) {
	f := newFixture(t)
	tokens, err := discovery.ParseBroadcastAudioURI(testURI)
	require.NoError(t, err)

	require.NoError(t, f.model.AddSourceFromBroadcastAudioURI(tokens))

	sources := f.model.Sources()
	require.Len(t, sources, 1)
	src := sources[0]
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", src.Address.String())
	assert.Equal(t, wire.AddressTypeRandom, src.Address.Type)
	assert.Equal(t, wire.DataRPA, src.AddressTag)
	assert.Equal(t, "Hockey", src.BroadcastName)
	assert.Equal(t, ptr(uint32(0x0A0B0C)), src.BroadcastID)
	assert.Equal(t, ptr(uint16(0x0190)), src.PAInterval)
	assert.Equal(t, ptr(uint8(1)), src.SID)
	assert.Equal(t, SourceStateUndefined, src.State)

	got := f.rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, SourceFound, got[0].Name)
	assert.Equal(t, "Hockey", got[0].Source.BroadcastName)
	assert.Empty(t, f.transport.messages())
}

func TestAddSourceFromBroadcastAudioURIDuplicate(t *testing.T) {
	f := newFixture(t)
	tokens, err := discovery.ParseBroadcastAudioURI(testURI)
	require.NoError(t, err)
	require.NoError(t, f.model.AddSourceFromBroadcastAudioURI(tokens))
	f.rec.reset()

	require.NoError(t, f.model.AddSourceFromBroadcastAudioURI(tokens))

	assert.Len(t, f.model.Sources(), 1)
	assert.Empty(t, f.rec.names())
	assert.Equal(t, uint64(1), f.model.Stats().Dropped[DropDuplicate])
}

func TestAddSourceFromBroadcastAudioURIWithoutAddress(t *testing.T) {
	f := newFixture(t)
	tokens, err := discovery.ParseBroadcastAudioURI("BLUETOOTH:BN:SG9ja2V5;BI:0A0B0C;;")
	require.NoError(t, err)

	err = f.model.AddSourceFromBroadcastAudioURI(tokens)

	assert.ErrorIs(t, err, ErrMissingAddressToken)
	assert.Empty(t, f.model.Sources())
	assert.Empty(t, f.rec.names())
}

func TestAddSourceFromBroadcastAudioURIRejectsBadAddress(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"zero address", "BLUETOOTH:AD:000000000000;BI:0A0B0C;;", ErrMissingAddressToken},
		{"address type out of range", "BLUETOOTH:AT:7;AD:AABBCCDDEEFF;BI:0A0B0C;;", ErrInvalidAddressType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tokens, err := discovery.ParseBroadcastAudioURI(tt.uri)
			require.NoError(t, err)

			err = f.model.AddSourceFromBroadcastAudioURI(tokens)

			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.model.Sources())
			assert.Empty(t, f.rec.names())
		})
	}
}

func TestURISourceCanBeSelected(t *testing.T) {
	f := newFixture(t)
	tokens, err := discovery.ParseBroadcastAudioURI(testURI)
	require.NoError(t, err)
	require.NoError(t, f.model.AddSourceFromBroadcastAudioURI(tokens))
	sinkAddr := addr("AA:00:00:00:00:01")
	f.addSink(t, sinkAddr)

	f.model.OnMessage(evt(t, wire.SubTypeBISSynced, identityItem(sinkAddr), broadcastIDItem(0x0A0B0C)))

	selected, ok := f.model.SelectedSource()
	require.True(t, ok)
	assert.Equal(t, "Hockey", selected.BroadcastName)
}
