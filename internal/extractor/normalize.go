package extractor

import (
	"fmt"

	"eventExtractor/internal/model"
)

func buildEvent(version int, entry model.LogEntry, data interface{}) model.Event {
	return model.Event{
		ProtocolVersion: version,
		BlockNumber:     entry.Log.BlockNumber,
		BlockHash:       entry.Log.BlockHash.Hex(),
		TransactionHash: entry.Log.TxHash.Hex(),
		LogIndex:        entry.Log.Index,
		ContractAddress: entry.Log.Address.Hex(),
		Type:            entry.Event,
		Data:            data,
	}
}

// normalize decodes every entry. A single malformed entry fails the batch.
func normalize(variant Variant, entries []model.LogEntry) ([]model.Event, error) {
	version := variant.ProtocolVersion()
	events := make([]model.Event, 0, len(entries))
	for _, entry := range entries {
		data, err := variant.EventData(entry)
		if err != nil {
			return nil, fmt.Errorf("log %s#%d in block %d: %w", entry.Log.TxHash.Hex(), entry.Log.Index, entry.Log.BlockNumber, err)
		}
		events = append(events, buildEvent(version, entry, data))
	}
	return events, nil
}
