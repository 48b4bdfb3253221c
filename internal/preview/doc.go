// Package preview maps rectangles between the on-screen camera preview and the
// full resolution camera frame.
//
// The game shell draws the live camera feed inside a fixed preview area. The
// frame is resized to fit that area, either stretched to fill it or letterboxed
// (pillarboxed) to keep its aspect ratio, and pasted at an offset inside the
// area. A Layout records where all of that sits on screen.
//
// Screen coordinates are float64 because canvas coordinates are; frame
// coordinates are integer pixels. For regions, (X1,Y1) is the inclusive
// top-left and (X2,Y2) the exclusive bottom-right corner.
package preview
