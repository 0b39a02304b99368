package mavlink

// MsgType identifies the payload of a Message.
type MsgType uint8

const (
	MsgHeartbeat           MsgType = 0
	MsgParamRequestRead    MsgType = 20
	MsgParamRequestList    MsgType = 21
	MsgParamValue          MsgType = 22
	MsgFileTransferRequest MsgType = 110
	MsgFileTransferData    MsgType = 111
)

func (t MsgType) String() string {
	switch t {
	case MsgHeartbeat:
		return "HEARTBEAT"
	case MsgParamRequestRead:
		return "PARAM_REQUEST_READ"
	case MsgParamRequestList:
		return "PARAM_REQUEST_LIST"
	case MsgParamValue:
		return "PARAM_VALUE"
	case MsgFileTransferRequest:
		return "FILE_TRANSFER_REQUEST"
	case MsgFileTransferData:
		return "FILE_TRANSFER_DATA"
	default:
		return "UNKNOWN"
	}
}

// Autopilot is the MAV_AUTOPILOT value announced in heartbeats.
type Autopilot uint8

const (
	AutopilotGeneric   Autopilot = 0
	AutopilotArduPilot Autopilot = 3
	AutopilotPX4       Autopilot = 12
)

func (a Autopilot) String() string {
	switch a {
	case AutopilotGeneric:
		return "generic"
	case AutopilotArduPilot:
		return "ardupilot"
	case AutopilotPX4:
		return "px4"
	default:
		return "unknown"
	}
}

// ParseAutopilot accepts the names produced by Autopilot.String.
func ParseAutopilot(s string) (Autopilot, bool) {
	switch s {
	case "generic":
		return AutopilotGeneric, true
	case "ardupilot", "apm":
		return AutopilotArduPilot, true
	case "px4":
		return AutopilotPX4, true
	}
	return 0, false
}

// ParamType is the MAV_PARAM_TYPE of a parameter value.
type ParamType uint8

const (
	ParamTypeUint8  ParamType = 1
	ParamTypeInt8   ParamType = 2
	ParamTypeUint16 ParamType = 3
	ParamTypeInt16  ParamType = 4
	ParamTypeUint32 ParamType = 5
	ParamTypeInt32  ParamType = 6
	ParamTypeReal32 ParamType = 9
)

// ComponentAutopilot is MAV_COMP_ID_AUTOPILOT1.
const ComponentAutopilot uint8 = 1

// HashCheckParamID is the pseudo parameter used for the cache hash exchange.
const HashCheckParamID = "_HASH_CHECK"

// ParamFilePath is the file-transfer path of the packed parameter set.
const ParamFilePath = "@PARAM/param.pck"

// Serial framing.
const (
	StartByte    = 0xFD
	headerSize   = 3 // start byte + uint16 length
	trailerSize  = 2 // crc16
	MaxFrameSize = 64 * 1024

	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)
