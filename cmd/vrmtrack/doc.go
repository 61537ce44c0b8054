// Command vrmtrack drives a humanoid avatar rig from webcam landmarks.
//
// `vrmtrack run` starts the tracker with its HTTP API, optionally with a
// tray icon. Other subcommands manage configuration, tuning profiles and
// clips.
package main
