// ABOUTME: Decoder stage package
// ABOUTME: Selects a decoder per track codec
// Package decode contains the decode stage of the pipeline.
//
// H.264 is not decoded to pictures. The H264 decoder rewrites every packet
// into a validated Annex-B access unit, the form hardware decoders and
// elementary stream sinks accept. Audio decoders produce PCM.
package decode
