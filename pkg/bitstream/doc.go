// ABOUTME: H.264 bitstream normalization package
// ABOUTME: Rewrites container-stored NAL units into Annex-B for decoders
// Package bitstream converts H.264 packets into the Annex-B byte stream
// format expected by decoders and elementary-stream sinks.
//
// Containers such as MP4 store NAL units with big-endian length prefixes
// (AVCC) and carry the SPS and PPS out of band in the avcC record. Annex-B
// consumers need start codes and in-band parameter sets, so PacketToAnnexB
// inserts the track's SPS and PPS before every coded slice.
//
// Example:
//
//	params, err := bitstream.ParseDecoderConfig(props.ExtraData)
//	out, format, err := bitstream.PacketToAnnexB(nil, sample.Data, params)
package bitstream
