// Package engines contains the text-to-speech engines the narrator can drive.
// Piper runs offline, gTTS goes through Google Translate, and mock is for
// tests. Each engine implements tts.Engine.
package engines
