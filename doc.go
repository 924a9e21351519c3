// # Go Client Engine for Real-Time Duplex Voice Conversations
//
// This repository provides a Go package for building applications that hold real-time, two-way voice conversations with a remote speech model over a persistent duplex channel. It covers the capture/encode path that turns live microphone samples into outbound frames, the decode/playback scheduler that turns inbound frames into continuous, interruptible speech output, and the turn-ordered transcript accumulation that goes with them. The channel itself is an opaque interface supplied by the caller.
package liveaudio
