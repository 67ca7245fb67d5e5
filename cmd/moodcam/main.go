// moodcam detects faces in a camera feed or still images and classifies
// their facial emotion.
//
// Usage:
//
//	moodcam live --source webcam --device 0
//	moodcam still photos/*.jpg --out annotated --report report.json
//	moodcam watch inbox --out annotated
//	moodcam models
package main

func main() {
	Execute()
}
