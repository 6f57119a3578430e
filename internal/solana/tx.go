package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PubKey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is an ordered set of instructions with a fee payer and a
// recent blockhash. Signatures are appended by Sign.
type Transaction struct {
	Instructions    []Instruction
	FeePayer        string
	RecentBlockhash string
	Signatures      [][]byte
}

// NewTransaction creates an unsigned transaction.
func NewTransaction(feePayer, recentBlockhash string, instructions ...Instruction) *Transaction {
	return &Transaction{
		Instructions:    instructions,
		FeePayer:        feePayer,
		RecentBlockhash: recentBlockhash,
	}
}

// NewTransferInstruction builds a system-program lamport transfer.
func NewTransferInstruction(from, to string, lamports uint64) Instruction {
	// System program transfer: instruction index 2, u64 lamports, little-endian.
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: "11111111111111111111111111111111",
		Accounts: []AccountMeta{
			{PubKey: from, IsSigner: true, IsWritable: true},
			{PubKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// Message returns the deterministic byte encoding that is signed.
func (tx *Transaction) Message() ([]byte, error) {
	var buf []byte

	appendBytes := func(b []byte) {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, b...)
	}
	appendAddr := func(addr string) error {
		raw, err := base58.Decode(addr)
		if err != nil {
			return fmt.Errorf("decode address %q: %w", addr, err)
		}
		appendBytes(raw)
		return nil
	}

	if err := appendAddr(tx.FeePayer); err != nil {
		return nil, fmt.Errorf("fee payer: %w", err)
	}
	appendBytes([]byte(tx.RecentBlockhash))

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(tx.Instructions)))
	buf = append(buf, countBuf[:]...)

	for _, ix := range tx.Instructions {
		if err := appendAddr(ix.ProgramID); err != nil {
			return nil, fmt.Errorf("program id: %w", err)
		}
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ix.Accounts)))
		buf = append(buf, countBuf[:]...)
		for _, acc := range ix.Accounts {
			if err := appendAddr(acc.PubKey); err != nil {
				return nil, fmt.Errorf("account: %w", err)
			}
			var flags byte
			if acc.IsSigner {
				flags |= 1
			}
			if acc.IsWritable {
				flags |= 2
			}
			buf = append(buf, flags)
		}
		appendBytes(ix.Data)
	}

	return buf, nil
}

// Sign appends the keypair's signature over the transaction message.
func (tx *Transaction) Sign(kp *Keypair) error {
	msg, err := tx.Message()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	tx.Signatures = append(tx.Signatures, kp.Sign(msg))
	return nil
}

// MarshalBase64 serializes signatures plus message for wire submission.
func (tx *Transaction) MarshalBase64() (string, error) {
	msg, err := tx.Message()
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	var buf []byte
	buf = append(buf, byte(len(tx.Signatures)))
	for _, sig := range tx.Signatures {
		buf = append(buf, sig...)
	}
	buf = append(buf, msg...)

	return base64.StdEncoding.EncodeToString(buf), nil
}
