package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
)

// Metadata describes the first audio stream of a buffer plus container tags.
type Metadata struct {
	DurationSec float64
	Format      string
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	Title       string
	Artist      string
}

type ffprobeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// Metadata probes format and stream details. Buffers without an audio stream are rejected.
func (p *FFProbe) Metadata(ctx context.Context, data []byte) (*Metadata, error) {
	out, err := p.run(ctx, data, "-show_format", "-show_streams")
	if err != nil {
		return nil, err
	}
	return parseFFProbeMetadata(out)
}

func parseFFProbeMetadata(out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("%w: parsing ffprobe output: %v", errs.ErrProbe, err)
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, fmt.Errorf("%w: no audio stream found", errs.ErrProbe)
	}

	duration, err := parseFFProbeDuration(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrProbe, err)
	}
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	meta := &Metadata{
		DurationSec: duration,
		Format:      probe.Format.Format,
		Codec:       stream.CodecName,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		BitDepth:    stream.BitsPerSample,
	}
	if probe.Format.Tags != nil {
		meta.Title = probe.Format.Tags["title"]
		meta.Artist = probe.Format.Tags["artist"]
	}
	return meta, nil
}
