package raffle

import (
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

//go:embed idl/raffle.json
var embeddedIDL []byte

var programIDL = mustParseIDL(embeddedIDL)

// IDL is the program interface description: instruction names, ordered account
// roles, argument lists, account record types and custom error codes.
type IDL struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLTypeDefinition `json:"accounts"`
	Errors       []IDLError          `json:"errors"`
}

type IDLInstruction struct {
	Name     string       `json:"name"`
	Accounts []IDLAccount `json:"accounts"`
	Args     []IDLField   `json:"args"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLTypeDefinition struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

type IDLError struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// LoadIDL parses the interface description embedded in the SDK.
func LoadIDL() (*IDL, error) {
	return ParseIDL(embeddedIDL)
}

// DefaultIDL returns the embedded interface description, parsed once at init.
func DefaultIDL() *IDL {
	return programIDL
}

func mustParseIDL(data []byte) *IDL {
	idl, err := ParseIDL(data)
	if err != nil {
		panic(err)
	}
	return idl
}

// ParseIDL decodes and sanity checks an IDL document.
func ParseIDL(data []byte) (*IDL, error) {
	var idl IDL
	if err := json.Unmarshal(data, &idl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal IDL: %w", err)
	}
	if len(idl.Instructions) == 0 {
		return nil, fmt.Errorf("IDL %q has no instructions", idl.Name)
	}
	seen := make(map[string]struct{}, len(idl.Instructions))
	for _, ix := range idl.Instructions {
		if ix.Name == "" {
			return nil, fmt.Errorf("IDL %q has an unnamed instruction", idl.Name)
		}
		if _, ok := seen[ix.Name]; ok {
			return nil, fmt.Errorf("IDL %q has duplicate instruction %q", idl.Name, ix.Name)
		}
		seen[ix.Name] = struct{}{}
	}
	return &idl, nil
}

func (i *IDL) Instruction(name string) (*IDLInstruction, error) {
	for idx := range i.Instructions {
		if i.Instructions[idx].Name == name {
			return &i.Instructions[idx], nil
		}
	}
	return nil, fmt.Errorf("instruction %q not found in IDL", name)
}

func (i *IDL) Error(code uint32) (*IDLError, bool) {
	for idx := range i.Errors {
		if i.Errors[idx].Code == code {
			return &i.Errors[idx], true
		}
	}
	return nil, false
}

// BuildInstruction encodes a program instruction. Account metas are ordered and
// flagged per the IDL; every role must be supplied exactly once. args is the
// borsh-serializable argument struct, or nil for instructions without arguments.
func (i *IDL) BuildInstruction(
	programID solana.PublicKey,
	name string,
	accounts map[string]solana.PublicKey,
	args any,
) (solana.Instruction, error) {
	ix, err := i.Instruction(name)
	if err != nil {
		return nil, err
	}

	for role := range accounts {
		if !ix.hasAccount(role) {
			return nil, fmt.Errorf("instruction %q has no account %q", name, role)
		}
	}

	metas := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, acct := range ix.Accounts {
		pk, ok := accounts[acct.Name]
		if !ok {
			return nil, fmt.Errorf("instruction %q is missing account %q", name, acct.Name)
		}
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  pk,
			IsSigner:   acct.IsSigner,
			IsWritable: acct.IsMut,
		})
	}

	if (args == nil) != (len(ix.Args) == 0) {
		return nil, fmt.Errorf("instruction %q expects %d args", name, len(ix.Args))
	}

	disc := InstructionDiscriminator(name)
	data := append([]byte{}, disc[:]...)
	if args != nil {
		encoded, err := borsh.Serialize(args)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s args: %w", name, err)
		}
		data = append(data, encoded...)
	}

	return solana.NewInstruction(programID, metas, data), nil
}

func (ix *IDLInstruction) hasAccount(role string) bool {
	for _, acct := range ix.Accounts {
		if acct.Name == role {
			return true
		}
	}
	return false
}

// InstructionDiscriminator returns sha256("global:<snake_case name>")[:8].
func InstructionDiscriminator(name string) [anchorDiscriminatorLength]byte {
	return discriminator(anchorInstructionNamespace + toSnakeCase(name))
}

// AccountDiscriminator returns sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) [anchorDiscriminatorLength]byte {
	return discriminator(anchorAccountNamespace + name)
}

func discriminator(preimage string) [anchorDiscriminatorLength]byte {
	sum := sha256.Sum256([]byte(preimage))
	var out [anchorDiscriminatorLength]byte
	copy(out[:], sum[:anchorDiscriminatorLength])
	return out
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
