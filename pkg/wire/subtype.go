package wire

import "fmt"

// SubType selects the operation within a message class. Commands and their
// responses share values; events live in the 0x80 range. STOP_SCAN is also
// emitted as an event when the firmware stops scanning on its own.
type SubType uint8

// Command and response subtypes.
const (
	SubTypeStartSinkScan   SubType = 0x01
	SubTypeStartSourceScan SubType = 0x02
	SubTypeStartAllScan    SubType = 0x03
	SubTypeStopScan        SubType = 0x04
	SubTypeConnectSink     SubType = 0x05
	SubTypeDisconnectSink  SubType = 0x06
	SubTypeAddSource       SubType = 0x07
	SubTypeRemoveSource    SubType = 0x08
	SubTypeBigBcode        SubType = 0x09
	SubTypeReset           SubType = 0x0A
)

// Event subtypes.
const (
	SubTypeSinkFound             SubType = 0x81
	SubTypeSinkConnected         SubType = 0x82
	SubTypeSinkDisconnected      SubType = 0x83
	SubTypeSourceFound           SubType = 0x84
	SubTypeSourceBaseFound       SubType = 0x85
	SubTypeSourceAdded           SubType = 0x86
	SubTypeSourceRemoved         SubType = 0x87
	SubTypeNewPAStateNotSynced   SubType = 0x88
	SubTypeNewPAStateInfoReq     SubType = 0x89
	SubTypeNewPAStateSynced      SubType = 0x8A
	SubTypeNewPAStateFailed      SubType = 0x8B
	SubTypeNewPAStateNoPAST      SubType = 0x8C
	SubTypeBISSynced             SubType = 0x8D
	SubTypeBISUnsynced           SubType = 0x8E
	SubTypeIdentityResolved      SubType = 0x8F
	SubTypeSourceBigEncBcodeReq  SubType = 0x90
	SubTypeSourceBigEncNoBadCode SubType = 0x91

	// SubTypeHeartbeat is used both as a command and as the periodic event.
	SubTypeHeartbeat SubType = 0xFF
)

var subTypeNames = map[SubType]string{
	SubTypeStartSinkScan:         "START_SINK_SCAN",
	SubTypeStartSourceScan:       "START_SOURCE_SCAN",
	SubTypeStartAllScan:          "START_ALL_SCAN",
	SubTypeStopScan:              "STOP_SCAN",
	SubTypeConnectSink:           "CONNECT_SINK",
	SubTypeDisconnectSink:        "DISCONNECT_SINK",
	SubTypeAddSource:             "ADD_SOURCE",
	SubTypeRemoveSource:          "REMOVE_SOURCE",
	SubTypeBigBcode:              "BIG_BCODE",
	SubTypeReset:                 "RESET",
	SubTypeSinkFound:             "SINK_FOUND",
	SubTypeSinkConnected:         "SINK_CONNECTED",
	SubTypeSinkDisconnected:      "SINK_DISCONNECTED",
	SubTypeSourceFound:           "SOURCE_FOUND",
	SubTypeSourceBaseFound:       "SOURCE_BASE_FOUND",
	SubTypeSourceAdded:           "SOURCE_ADDED",
	SubTypeSourceRemoved:         "SOURCE_REMOVED",
	SubTypeNewPAStateNotSynced:   "NEW_PA_STATE_NOT_SYNCED",
	SubTypeNewPAStateInfoReq:     "NEW_PA_STATE_INFO_REQ",
	SubTypeNewPAStateSynced:      "NEW_PA_STATE_SYNCED",
	SubTypeNewPAStateFailed:      "NEW_PA_STATE_FAILED",
	SubTypeNewPAStateNoPAST:      "NEW_PA_STATE_NO_PAST",
	SubTypeBISSynced:             "BIS_SYNCED",
	SubTypeBISUnsynced:           "BIS_UNSYNCED",
	SubTypeIdentityResolved:      "IDENTITY_RESOLVED",
	SubTypeSourceBigEncBcodeReq:  "SOURCE_BIG_ENC_BCODE_REQ",
	SubTypeSourceBigEncNoBadCode: "SOURCE_BIG_ENC_NO_BAD_CODE",
	SubTypeHeartbeat:             "HEARTBEAT",
}

// String returns the subtype name, or its hex value if unknown.
func (s SubType) String() string {
	if name, ok := subTypeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(s))
}

// IsKnown returns true if the subtype has a defined meaning.
func (s SubType) IsKnown() bool {
	_, ok := subTypeNames[s]
	return ok
}
