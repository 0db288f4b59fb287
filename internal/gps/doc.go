// Package gps ingests NMEA-0183 receiver output and maintains the current
// fix and the positioned satellite set.
//
// Engine is the synchronous core: it owns the decoder, the fix aggregator,
// the sky model and the satellite reconciler, and does no I/O. Service runs
// an Engine on a single worker goroutine fed by one source (serial, tcp,
// gpsd, replay or sim) and publishes immutable snapshots through
// pubsub broadcasters.
package gps
