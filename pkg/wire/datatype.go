package wire

import "fmt"

// DataType is the type tag of an LTV item.
type DataType uint8

// Bluetooth assigned advertising data types.
const (
	DataUUID16Some    DataType = 0x02 // Incomplete list of 16-bit service UUIDs
	DataUUID16All     DataType = 0x03 // Complete list of 16-bit service UUIDs
	DataNameShortened DataType = 0x08 // Shortened local name
	DataNameComplete  DataType = 0x09 // Complete local name
	DataBroadcastName DataType = 0x30 // Broadcast name
)

// Vendor data types synthesized by the assistant firmware.
const (
	DataRPA           DataType = 0xF0 // Resolvable private address (Address)
	DataIdentity      DataType = 0xF1 // Identity address (Address)
	DataRSSI          DataType = 0xF2 // int8
	DataBroadcastID   DataType = 0xF3 // uint24, carried as uint32
	DataBASE          DataType = 0xF4 // raw BASE structure
	DataSID           DataType = 0xF5 // advertising set ID, uint8
	DataPAInterval    DataType = 0xF6 // periodic advertising interval, uint16
	DataErrorCode     DataType = 0xF7 // uint8, 0 = success
	DataSourceID      DataType = 0xF8 // BASS source ID, uint8
	DataBroadcastCode DataType = 0xF9 // up to 16 raw bytes
)

var dataTypeNames = map[DataType]string{
	DataUUID16Some:    "UUID16_SOME",
	DataUUID16All:     "UUID16_ALL",
	DataNameShortened: "NAME_SHORTENED",
	DataNameComplete:  "NAME_COMPLETE",
	DataBroadcastName: "BROADCAST_NAME",
	DataRPA:           "RPA",
	DataIdentity:      "IDENTITY",
	DataRSSI:          "RSSI",
	DataBroadcastID:   "BROADCAST_ID",
	DataBASE:          "BASE",
	DataSID:           "SID",
	DataPAInterval:    "PA_INTERVAL",
	DataErrorCode:     "ERROR_CODE",
	DataSourceID:      "SOURCE_ID",
	DataBroadcastCode: "BROADCAST_CODE",
}

// String returns the data type name, or its hex value if unknown.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(t))
}

// MaxBroadcastID is the largest value a 24-bit broadcast ID can hold.
const MaxBroadcastID = 0xFFFFFF

// BroadcastCodeSize is the maximum broadcast code length in bytes.
const BroadcastCodeSize = 16
