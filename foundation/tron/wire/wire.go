// Package wire encodes and decodes the subset of the TRON protocol buffer
// messages needed to handle a native transfer: Transaction, raw, Contract,
// TransferContract and, for classification only, TriggerSmartContract.
// Encoding is byte compatible with the protocol's generated code: fields are
// written in field number order and zero values are omitted.
package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Type URLs carried inside Contract.parameter.
const (
	TypeURLTransfer = "type.googleapis.com/protocol.TransferContract"
	TypeURLTrigger  = "type.googleapis.com/protocol.TriggerSmartContract"
)

// ErrMalformed is returned when bytes can't be decoded into a message.
var ErrMalformed = errors.New("wire: malformed message")

// ContractType mirrors Transaction.Contract.ContractType.
type ContractType int32

// Subset of protocol contract types the system recognises by name.
const (
	AccountCreateContract      ContractType = 0
	TransferContractType       ContractType = 1
	TransferAssetContract      ContractType = 2
	FreezeBalanceContract      ContractType = 11
	UnfreezeBalanceContract    ContractType = 12
	CreateSmartContract        ContractType = 30
	TriggerSmartContractType   ContractType = 31
	FreezeBalanceV2Contract    ContractType = 54
	UnfreezeBalanceV2Contract  ContractType = 55
	DelegateResourceContract   ContractType = 57
	UnDelegateResourceContract ContractType = 58
)

var contractNames = map[ContractType]string{
	AccountCreateContract:      "AccountCreateContract",
	TransferContractType:       "TransferContract",
	TransferAssetContract:      "TransferAssetContract",
	FreezeBalanceContract:      "FreezeBalanceContract",
	UnfreezeBalanceContract:    "UnfreezeBalanceContract",
	CreateSmartContract:        "CreateSmartContract",
	TriggerSmartContractType:   "TriggerSmartContract",
	FreezeBalanceV2Contract:    "FreezeBalanceV2Contract",
	UnfreezeBalanceV2Contract:  "UnfreezeBalanceV2Contract",
	DelegateResourceContract:   "DelegateResourceContract",
	UnDelegateResourceContract: "UnDelegateResourceContract",
}

func (ct ContractType) String() string {
	if name, exists := contractNames[ct]; exists {
		return name
	}
	return fmt.Sprintf("ContractType(%d)", int32(ct))
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Any mirrors google.protobuf.Any.
type Any struct {
	TypeURL string
	Value   []byte
}

// Contract mirrors Transaction.Contract.
type Contract struct {
	Type         ContractType
	Parameter    Any
	Provider     []byte
	ContractName []byte
	PermissionID int32
}

// Raw mirrors Transaction.raw. Fields the system never produces are still
// decoded so validators can refuse them; anything not modelled here is
// listed in Unknown.
type Raw struct {
	RefBlockBytes []byte
	RefBlockNum   int64
	RefBlockHash  []byte
	Expiration    int64
	Auths         int
	Data          []byte
	Contracts     []Contract
	Scripts       []byte
	Timestamp     int64
	FeeLimit      int64
	Unknown       []protowire.Number
}

// Transaction mirrors the protocol Transaction envelope. RawData holds the
// exact serialized raw message; it's what gets hashed and signed.
type Transaction struct {
	RawData    []byte
	Signatures [][]byte
	Ret        [][]byte
}

// TransferContract mirrors protocol.TransferContract.
type TransferContract struct {
	OwnerAddress []byte
	ToAddress    []byte
	Amount       int64
}

// TriggerSmartContract mirrors the leading fields of protocol.TriggerSmartContract.
type TriggerSmartContract struct {
	OwnerAddress    []byte
	ContractAddress []byte
	CallValue       int64
	Data            []byte
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// ID returns the transaction id: the hex encoded sha256 of the raw data.
func (tx Transaction) ID() string {
	sum := sha256.Sum256(tx.RawData)
	return hex.EncodeToString(sum[:])
}

// Hash returns the sha256 digest of the raw data that signatures cover.
func (tx Transaction) Hash() []byte {
	sum := sha256.Sum256(tx.RawData)
	return sum[:]
}

// Raw decodes the raw data.
func (tx Transaction) Raw() (Raw, error) {
	return UnmarshalRaw(tx.RawData)
}

// Clone returns a deep copy of the transaction.
func (tx Transaction) Clone() Transaction {
	cpy := Transaction{
		RawData: append([]byte(nil), tx.RawData...),
	}
	for _, sig := range tx.Signatures {
		cpy.Signatures = append(cpy.Signatures, append([]byte(nil), sig...))
	}
	for _, ret := range tx.Ret {
		cpy.Ret = append(cpy.Ret, append([]byte(nil), ret...))
	}

	return cpy
}

// Marshal serializes the full transaction.
func (tx Transaction) Marshal() []byte {
	var b []byte
	if len(tx.RawData) > 0 {
		b = appendBytes(b, 1, tx.RawData)
	}
	for _, sig := range tx.Signatures {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}
	for _, ret := range tx.Ret {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, ret)
	}

	return b
}

// UnmarshalTransaction decodes a full serialized transaction.
func UnmarshalTransaction(b []byte) (Transaction, error) {
	var tx Transaction
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case 1:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			tx.RawData = append([]byte(nil), v...)
		case 2:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			tx.Signatures = append(tx.Signatures, append([]byte(nil), v...))
		case 5:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			tx.Ret = append(tx.Ret, append([]byte(nil), v...))
		default:
			return fmt.Errorf("%w: unexpected transaction field %d", ErrMalformed, num)
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	return tx, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Marshal serializes the raw message.
func (r Raw) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, r.RefBlockBytes)
	b = appendVarint(b, 3, uint64(r.RefBlockNum))
	b = appendBytes(b, 4, r.RefBlockHash)
	b = appendVarint(b, 8, uint64(r.Expiration))
	b = appendBytes(b, 10, r.Data)
	for _, c := range r.Contracts {
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Marshal())
	}
	b = appendBytes(b, 12, r.Scripts)
	b = appendVarint(b, 14, uint64(r.Timestamp))
	b = appendVarint(b, 18, uint64(r.FeeLimit))

	return b
}

// UnmarshalRaw decodes a serialized raw message.
func UnmarshalRaw(b []byte) (Raw, error) {
	var r Raw
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			r.RefBlockBytes = append([]byte(nil), v...)
		case 3:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			r.RefBlockNum = int64(n)
		case 4:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			r.RefBlockHash = append([]byte(nil), v...)
		case 8:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			r.Expiration = int64(n)
		case 9:
			r.Auths++
		case 10:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			r.Data = append([]byte(nil), v...)
		case 11:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			c, err := UnmarshalContract(v)
			if err != nil {
				return err
			}
			r.Contracts = append(r.Contracts, c)
		case 12:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			r.Scripts = append([]byte(nil), v...)
		case 14:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			r.Timestamp = int64(n)
		case 18:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			r.FeeLimit = int64(n)
		default:
			r.Unknown = append(r.Unknown, num)
		}
		return nil
	})
	if err != nil {
		return Raw{}, err
	}

	return r, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Marshal serializes the contract.
func (c Contract) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(int64(c.Type)))

	var param []byte
	param = appendString(param, 1, c.Parameter.TypeURL)
	param = appendBytes(param, 2, c.Parameter.Value)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, param)

	b = appendBytes(b, 3, c.Provider)
	b = appendBytes(b, 4, c.ContractName)
	b = appendVarint(b, 5, uint64(int64(c.PermissionID)))

	return b
}

// UnmarshalContract decodes a serialized contract.
func UnmarshalContract(b []byte) (Contract, error) {
	var c Contract
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			c.Type = ContractType(int32(n))
		case 2:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			param, err := unmarshalAny(v)
			if err != nil {
				return err
			}
			c.Parameter = param
		case 3:
			c.Provider = append([]byte(nil), v...)
		case 4:
			c.ContractName = append([]byte(nil), v...)
		case 5:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			c.PermissionID = int32(n)
		default:
			return fmt.Errorf("%w: unexpected contract field %d", ErrMalformed, num)
		}
		return nil
	})
	if err != nil {
		return Contract{}, err
	}

	return c, nil
}

func unmarshalAny(b []byte) (Any, error) {
	var a Any
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return ErrMalformed
		}
		switch num {
		case 1:
			a.TypeURL = string(v)
		case 2:
			a.Value = append([]byte(nil), v...)
		default:
			return fmt.Errorf("%w: unexpected any field %d", ErrMalformed, num)
		}
		return nil
	})

	return a, err
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// NewTransfer wraps a TransferContract into a Contract.
func NewTransfer(tc TransferContract) Contract {
	return Contract{
		Type: TransferContractType,
		Parameter: Any{
			TypeURL: TypeURLTransfer,
			Value:   tc.Marshal(),
		},
	}
}

// Marshal serializes the transfer contract.
func (tc TransferContract) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, tc.OwnerAddress)
	b = appendBytes(b, 2, tc.ToAddress)
	b = appendVarint(b, 3, uint64(tc.Amount))

	return b
}

// UnmarshalTransfer decodes a serialized transfer contract.
func UnmarshalTransfer(b []byte) (TransferContract, error) {
	var tc TransferContract
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			tc.OwnerAddress = append([]byte(nil), v...)
		case 2:
			if typ != protowire.BytesType {
				return ErrMalformed
			}
			tc.ToAddress = append([]byte(nil), v...)
		case 3:
			if typ != protowire.VarintType {
				return ErrMalformed
			}
			tc.Amount = int64(n)
		default:
			return fmt.Errorf("%w: unexpected transfer field %d", ErrMalformed, num)
		}
		return nil
	})
	if err != nil {
		return TransferContract{}, err
	}

	return tc, nil
}

// Marshal serializes the trigger contract.
func (tc TriggerSmartContract) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, tc.OwnerAddress)
	b = appendBytes(b, 2, tc.ContractAddress)
	b = appendVarint(b, 3, uint64(tc.CallValue))
	b = appendBytes(b, 4, tc.Data)

	return b
}

// UnmarshalTrigger decodes the leading fields of a trigger contract. Trailing
// token fields are skipped.
func UnmarshalTrigger(b []byte) (TriggerSmartContract, error) {
	var tc TriggerSmartContract
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			tc.OwnerAddress = append([]byte(nil), v...)
		case 2:
			tc.ContractAddress = append([]byte(nil), v...)
		case 3:
			tc.CallValue = int64(n)
		case 4:
			tc.Data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return TriggerSmartContract{}, err
	}

	return tc, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// walk calls fn for every field in b. For bytes fields v holds the payload,
// for varint fields n holds the value.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("%w: %s", ErrMalformed, protowire.ParseError(tagLen))
		}
		b = b[tagLen:]

		var v []byte
		var n uint64
		var m int
		switch typ {
		case protowire.VarintType:
			n, m = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, m = protowire.ConsumeBytes(b)
		default:
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: %s", ErrMalformed, protowire.ParseError(m))
		}
		b = b[m:]

		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}

	return nil
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
