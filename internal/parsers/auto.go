package parsers

import (
	"sftp-data-ingestion/internal/sniff"
	"sftp-data-ingestion/pkg/logger"
)

// ParseAuto runs the encoding/delimiter sniffer over its candidate list and
// parses with the first combination that yields a plausible table. An
// implausible table advances to the next encoding; exhausting the list
// yields an empty table, never an error; an unreadable file is simply
// empty downstream.
func ParseAuto(raw []byte) (*Table, *sniff.Detection) {
	log := logger.GetGlobalLogger().WithComponent("parser")

	for i := 0; ; i++ {
		det, ok := sniff.Sniff(raw, i)
		if !ok {
			log.Warn("All candidate encodings exhausted; treating file as empty")
			return &Table{}, nil
		}

		table, err := Parse(det.Text, det.Delimiter)
		if err != nil {
			log.WithFields(logger.Fields{
				"encoding":  det.Encoding,
				"delimiter": string(det.Delimiter),
			}).Debug("Implausible table shape; retrying with next encoding")
			continue
		}
		return table, det
	}
}
