package raffle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const metadataSeed = "metadata"

// DeriveGlobalAuthorityPDA derives the PDA of the GlobalPool account, which is
// also the custody authority for raffled items.
// Seeds: ["global-authority"]
func DeriveGlobalAuthorityPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte(GlobalAuthoritySeed),
	}
	return solana.FindProgramAddress(seeds, programID)
}

// DeriveSeededAddress derives create_with_seed(base, seed, programID).
func DeriveSeededAddress(base solana.PublicKey, seed string, programID solana.PublicKey) (solana.PublicKey, error) {
	if len(seed) > MaxSeedLength {
		return solana.PublicKey{}, fmt.Errorf("seed length %d exceeds max %d", len(seed), MaxSeedLength)
	}
	addr, err := solana.CreateWithSeed(base, seed, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("create_with_seed failed: %w", err)
	}
	return addr, nil
}

// DeriveCollectionRegistryAddress derives the CollectionPool address owned by
// the administrator that initialized the program.
func DeriveCollectionRegistryAddress(admin solana.PublicKey, programID solana.PublicKey) (solana.PublicKey, error) {
	return DeriveSeededAddress(admin, CollectionPoolSeed, programID)
}

// RaffleSeed is the first length characters of the base58 form of the mint.
func RaffleSeed(mint solana.PublicKey, length int) string {
	encoded := base58.Encode(mint[:])
	if length < 0 {
		length = 0
	}
	if length > len(encoded) {
		length = len(encoded)
	}
	return encoded[:length]
}

// DeriveRaffleAddress derives the candidate raffle address for a creator and
// mint at the given seed length.
func DeriveRaffleAddress(
	creator solana.PublicKey,
	mint solana.PublicKey,
	length int,
	programID solana.PublicKey,
) (solana.PublicKey, string, error) {
	if length < RaffleSeedMinLength || length > RaffleSeedMaxLength {
		return solana.PublicKey{}, "", fmt.Errorf("seed length %d outside [%d, %d]", length, RaffleSeedMinLength, RaffleSeedMaxLength)
	}
	seed := RaffleSeed(mint, length)
	addr, err := DeriveSeededAddress(creator, seed, programID)
	if err != nil {
		return solana.PublicKey{}, "", err
	}
	return addr, seed, nil
}

// DeriveAssociatedTokenAddress derives the associated token account of owner for mint.
// Seeds: [owner, token program, mint] under the associated token program.
func DeriveAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// DeriveMetadataAddress derives the token metadata account for a mint.
// Seeds: ["metadata", metadata program, mint] under the metadata program.
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(metadataSeed),
			TokenMetadataProgramID[:],
			mint[:],
		},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	return addr, nil
}
