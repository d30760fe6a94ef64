package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RevertReason is the structured form of a failed call's revert payload.
type RevertReason struct {
	Message  string
	Selector string
	Data     []byte
	Raw      string
}

func (r *RevertReason) String() string {
	if r == nil {
		return "reverted"
	}
	if r.Message != "" {
		return r.Message
	}
	if r.Selector != "" {
		return "custom error " + r.Selector
	}
	if r.Raw != "" {
		return r.Raw
	}
	return "reverted"
}

// RevertDecoder turns raw call errors into RevertReasons, resolving custom
// errors against the registered contract ABIs.
type RevertDecoder struct {
	abis []abi.ABI
}

func NewRevertDecoder(abis ...abi.ABI) *RevertDecoder {
	return &RevertDecoder{abis: abis}
}

// revertErrorCode is the JSON-RPC code nodes use for execution errors.
const revertErrorCode = 3

// IsRevert reports whether err is an execution revert: a JSON-RPC error with
// revert data or code 3, or a node that only reports "execution reverted".
// Timeouts, dial errors and cancellations are not reverts.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return true
	}
	var ee rpc.Error
	if errors.As(err, &ee) && ee.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// Decode extracts revert data from a JSON-RPC data error. It returns nil for
// errors that are not reverts. Reverts carrying no data keep only their
// message.
func (d *RevertDecoder) Decode(err error) *RevertReason {
	if !IsRevert(err) {
		return nil
	}

	reason := &RevertReason{Raw: err.Error()}

	data, ok := revertData(err)
	if !ok || len(data) < 4 {
		reason.Message = strings.TrimPrefix(err.Error(), "execution reverted: ")
		return reason
	}

	reason.Data = data
	reason.Selector = hexutil.Encode(data[:4])

	if msg, uerr := abi.UnpackRevert(data); uerr == nil {
		reason.Message = msg
		return reason
	}

	var id [4]byte
	copy(id[:], data[:4])
	for i := range d.abis {
		e, lerr := d.abis[i].ErrorByID(id)
		if lerr != nil {
			continue
		}
		reason.Message = e.Name
		if args, uerr := e.Inputs.Unpack(data[4:]); uerr == nil && len(args) > 0 {
			reason.Message = fmt.Sprintf("%s%v", e.Name, args)
		}
		return reason
	}

	return reason
}

func revertData(err error) ([]byte, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return nil, false
	}
	switch v := de.ErrorData().(type) {
	case string:
		b, derr := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if derr != nil {
			return nil, false
		}
		return b, true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}
