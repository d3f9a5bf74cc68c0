package raffle

import "fmt"

// DeserializeGlobalConfig decodes a GlobalPool account. Size and discriminator
// are checked before any field is read.
func DeserializeGlobalConfig(data []byte) (*GlobalConfig, error) {
	var config GlobalConfig
	if err := config.Deserialize(data); err != nil {
		return nil, fmt.Errorf("failed to deserialize global config: %w", err)
	}
	return &config, nil
}

// DeserializeCollectionRegistry decodes a CollectionPool account.
func DeserializeCollectionRegistry(data []byte) (*CollectionRegistry, error) {
	var registry CollectionRegistry
	if err := registry.Deserialize(data); err != nil {
		return nil, fmt.Errorf("failed to deserialize collection registry: %w", err)
	}
	return &registry, nil
}

// DeserializeRaffle decodes a RafflePool account.
func DeserializeRaffle(data []byte) (*Raffle, error) {
	var raffle Raffle
	if err := raffle.Deserialize(data); err != nil {
		return nil, fmt.Errorf("failed to deserialize raffle: %w", err)
	}
	return &raffle, nil
}
