package shared

// Version of the liveaudio module.
const Version = "0.1.0"
