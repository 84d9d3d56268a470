package goedi

// Package goedi reads and writes delimiter-based EDI messages
// (UN/EDIFACT, ANSI X12, HL7 v2 and similar formats).
//
// It provides:
//
// - A SegmentReader that cuts a character stream into segments with
//   escape-aware delimiter handling, a delimiter stack and mid-stream
//   charset switching
// - Split and ConcatAndTruncate for fields, components and subcomponents
// - An Encoder that turns open/text/close events into segments following a
//   mapping.Model
// - Detection of UNA/UNB/ISA service segments and re-delimiting via Translate
// - A stable error model via Issues (JSON Pointer, code, message)
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - Event drivers live under source/, message models under mapping/ and the CLI under cmd/goedi.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  r, err := goedi.NewSegmentReader(in, goedi.EDIFACTDelimiters())
//  d, syntax, err := goedi.DetectDelimiters(r)
//  for ok, err := r.MoveToNextSegment(false); ok && err == nil; ok, err = r.MoveToNextSegment(false) {
//      fields, _ := r.CurrentSegmentFields()
//  }
//
//  err = goedi.EncodeFrom(ctx, out, model, goedi.EDIFACTDelimiters(), gojson.NewReader(body))
//
