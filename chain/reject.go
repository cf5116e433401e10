// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "fmt"

// Reject reason tags raised by contract logic.
const (
	RejectedInit    = "RejectedInit"
	RejectedReceive = "RejectedReceive"
)

// NotPayableCode is never matched against a contract error schema.
const NotPayableCode int32 = -2147483636

// stdErrors are the error codes reserved by concordium-std.
var stdErrors = map[int32]string{
	-2147483647: "Error ()",
	-2147483646: "ParseError",
	-2147483645: "LogError::Full",
	-2147483644: "LogError::Malformed",
	-2147483643: "NewContractNameError::MissingInitPrefix",
	-2147483642: "NewContractNameError::TooLong",
	-2147483641: "NewReceiveNameError::MissingDotSeparator",
	-2147483640: "NewReceiveNameError::TooLong",
	-2147483639: "NewContractNameError::ContainsDot",
	-2147483638: "NewContractNameError::InvalidCharacters",
	-2147483637: "NewReceiveNameError::InvalidCharacters",
	-2147483636: "NotPayableError",
	-2147483635: "TransferError::AmountTooLarge",
	-2147483634: "TransferError::MissingAccount",
	-2147483633: "CallContractError::AmountTooLarge",
	-2147483632: "CallContractError::MissingAccount",
	-2147483631: "CallContractError::MissingContract",
	-2147483630: "CallContractError::MissingEntrypoint",
	-2147483629: "CallContractError::MessageFailed",
	-2147483628: "CallContractError::LogicReject",
	-2147483627: "CallContractError::Trap",
	-2147483626: "UpgradeError::MissingModule",
	-2147483625: "UpgradeError::MissingContract",
	-2147483624: "UpgradeError::UnsupportedModuleVersion",
	-2147483623: "QueryAccountBalanceError",
	-2147483622: "QueryContractBalanceError",
}

// StdError returns the concordium-std name of [code], if it has one.
func StdError(code int32) (string, bool) {
	name, ok := stdErrors[code]
	return name, ok
}

// IsLogicReject reports whether the contract itself rejected.
func (r *RejectReason) IsLogicReject() bool {
	return r != nil && (r.Tag == RejectedInit || r.Tag == RejectedReceive)
}

// Describe renders a human readable reason without consulting a schema.
func (r *RejectReason) Describe() string {
	if r == nil {
		return "unknown reject reason"
	}
	if !r.IsLogicReject() {
		return fmt.Sprintf("[%s]", r.Tag)
	}
	if name, ok := StdError(r.RejectReason); ok {
		return fmt.Sprintf("[%s] (code %d)", name, r.RejectReason)
	}
	return fmt.Sprintf("contract rejected with code %d", r.RejectReason)
}
