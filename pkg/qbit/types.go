package qbit

import (
	"github.com/Kheopsian/Seederr/internal/logger"
	"github.com/Kheopsian/Seederr/pkg/engine"
)

// torrentInfo mirrors the fields of /api/v2/torrents/info this client uses.
type torrentInfo struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Size        int64   `json:"size"`
	Seeders     int     `json:"num_complete"`
	Leechers    int     `json:"num_incomplete"`
	UploadRate  float64 `json:"upspeed"`
	Uploaded    int64   `json:"uploaded"`
	SavePath    string  `json:"save_path"`
	ContentPath string  `json:"content_path"`
	AddedOn     int64   `json:"added_on"`
}

// toPayloads converts the raw torrent list into engine payloads. Entries
// missing the fields a relocation depends on are skipped with a warning, not
// surfaced as errors; one broken torrent must not block the cycle.
func toPayloads(infos []torrentInfo, paths engine.TierPaths) []engine.Payload {
	payloads := make([]engine.Payload, 0, len(infos))
	for _, in := range infos {
		if in.Hash == "" || in.SavePath == "" || in.ContentPath == "" {
			logger.Warn("skipping malformed torrent entry",
				logger.KeyHash, in.Hash,
				logger.KeyName, in.Name,
			)
			continue
		}
		if in.Size < 0 {
			logger.Warn("skipping torrent with negative size",
				logger.KeyHash, in.Hash,
				logger.KeyName, in.Name,
				logger.KeySize, in.Size,
			)
			continue
		}

		payloads = append(payloads, engine.Payload{
			Hash:        in.Hash,
			Name:        in.Name,
			Category:    in.Category,
			Size:        in.Size,
			Seeders:     in.Seeders,
			Leechers:    in.Leechers,
			UploadRate:  in.UploadRate,
			Uploaded:    in.Uploaded,
			SavePath:    in.SavePath,
			ContentPath: in.ContentPath,
			AddedOn:     in.AddedOn,
			Tier:        paths.TierOf(in.SavePath),
		})
	}
	return payloads
}
