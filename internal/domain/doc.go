// Package domain models Japan Meteorological Agency (JMA) weather warnings,
// evacuation shelters, and the user display settings of the web client.
//
// # Data Source
//
// Warnings come from the JMA "bosai" warning feed, one JSON document per
// prefecture forecast office:
//
//	https://www.jma.go.jp/bosai/warning/data/warning_<office>.json
//
// e.g. office 170000 is Ishikawa. The document groups areas into "area types",
// one per administrative granularity:
//
//	{
//	  "reportDatetime": "2024-07-01T10:00:00+09:00",
//	  "areaTypes": [
//	    {"areas": [{"code": "170010", "name": "加賀", "warnings": [...]}]},
//	    {"areas": [{"code": "1720100", "name": "金沢市", "warnings": [...]}]}
//	  ]
//	}
//
// Only the first two area types are read. They are addressed by position, not
// by key; the provider does not document that ordering, so a feed with a
// different number of groups is logged by the service.
//
// # Warning Codes
//
// Each warning carries a two-digit code whose first digit gives its tier:
//
//	3x  special warning (特別警報)  -> BucketSpecial
//	0x  warning (警報)              -> BucketWarning
//	1x  advisory (注意報)           -> BucketAdvisory
//	2x  advisory (注意報)           -> BucketAdvisory
//	*   anything else               -> BucketOther (never emitted)
//
// The status string "解除" marks a rescinded warning; those are dropped.
//
// # Labels
//
// Entries are shown as "<name>（<area>）" using full-width parentheses. The
// name falls back to the code, then to "不明". Entries are de-duplicated on
// (bucket, label) with first occurrence winning, so the output order is the
// feed order.
//
// # Geometry
//
// Shelter distances are great-circle distances on a sphere of mean Earth
// radius (6371.0088 km) computed with the s2 library. Positions may be given
// as "lat,lng" or as a geohash.
package domain
