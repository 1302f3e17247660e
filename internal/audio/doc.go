// Package audio plays synthesized clips on the default output device using
// oto/v3. Builds tagged nocgo get a stub player that reports the device as
// unavailable, and MockPlayer stands in for the device in tests.
package audio
