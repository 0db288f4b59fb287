// Package nmea decodes the NMEA-0183 sentences a GNSS receiver emits
// (GGA, RMC, GBS, GSA, VTG, GSV) into typed records.
//
// Parsing is fail-soft: a field that cannot be parsed keeps the value the
// previous sentence of the same type carried, and a sentence that is too
// short leaves the previous record untouched. Cross-type merging is done by
// package fix.
package nmea
