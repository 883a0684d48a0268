package protocol

import (
	"encoding/json"
	"strings"
)

// Stream tags as used on the event bus and in subscription updates.
const (
	StreamTranscription     = "transcription"
	StreamTranslation       = "translation"
	StreamHeadPosition      = "head_position"
	StreamButtonPress       = "button_press"
	StreamLocationUpdate    = "location_update"
	StreamVAD               = "vad"
	StreamPhoneNotification = "phone_notification"
	StreamCalendarEvent     = "calendar_event"
	StreamGlassesBattery    = "glasses_battery_update"
	StreamPhoneBattery      = "phone_battery_update"
	StreamVPSCoordinates    = "vps_coordinates"
	StreamPhotoTaken        = "photo_taken"
	StreamAudioChunk        = "audio_chunk"

	// StreamAll receives data for stream types this package does not model.
	StreamAll = "all"
)

// TranscriptionData is a speech-to-text result. Interim results arrive with
// IsFinal false and are superseded by a final one.
type TranscriptionData struct {
	Text               string  `json:"text"`
	IsFinal            bool    `json:"isFinal"`
	StartTime          uint64  `json:"startTime"`
	EndTime            uint64  `json:"endTime"`
	TranscribeLanguage *string `json:"transcribeLanguage,omitempty"`
	SpeakerID          *string `json:"speakerId,omitempty"`
	Duration           *uint64 `json:"duration,omitempty"`
}

// TranslationData is a transcription translated into another language.
type TranslationData struct {
	Text               string  `json:"text"`
	OriginalText       *string `json:"originalText,omitempty"`
	IsFinal            bool    `json:"isFinal"`
	StartTime          uint64  `json:"startTime"`
	EndTime            uint64  `json:"endTime"`
	TranscribeLanguage *string `json:"transcribeLanguage,omitempty"`
	TranslateLanguage  *string `json:"translateLanguage,omitempty"`
	DidTranslate       *bool   `json:"didTranslate,omitempty"`
	SpeakerID          *string `json:"speakerId,omitempty"`
	Duration           *uint64 `json:"duration,omitempty"`
}

type ButtonPressData struct {
	ButtonID  string `json:"buttonId"`
	Timestamp string `json:"timestamp"`
}

// HeadPositionData reports a head gesture, e.g. "up" or "down".
type HeadPositionData struct {
	Position  string `json:"position"`
	Timestamp string `json:"timestamp"`
}

type PhoneNotificationData struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	App       string `json:"app"`
	Timestamp string `json:"timestamp"`
}

// BatteryData is shared by the glasses and phone battery streams.
type BatteryData struct {
	Level      uint8  `json:"level"`
	IsCharging bool   `json:"isCharging"`
	Timestamp  string `json:"timestamp"`
}

type LocationData struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// CalendarEventData uses snake_case keys on the wire, unlike its siblings.
type CalendarEventData struct {
	Title     string  `json:"title"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Location  *string `json:"location,omitempty"`
}

type VADData struct {
	VoiceDetected bool     `json:"voiceDetected"`
	Confidence    *float32 `json:"confidence,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

// AudioChunkData carries chunk metadata only; audio bytes are not relayed.
type AudioChunkData struct {
	SampleRate *uint32 `json:"sample_rate,omitempty"`
	Duration   *uint64 `json:"duration,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

type VPSCoordinatesData struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Confidence *float32 `json:"confidence,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

type PhotoTakenData struct {
	PhotoID   string  `json:"photoId"`
	Timestamp string  `json:"timestamp"`
	Size      *uint64 `json:"size,omitempty"`
}

type streamDecoder func(json.RawMessage) (any, error)

func decodeAs[T any](data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var streamDecoders = map[string]streamDecoder{
	StreamTranslation:       decodeAs[TranslationData],
	StreamHeadPosition:      decodeAs[HeadPositionData],
	StreamButtonPress:       decodeAs[ButtonPressData],
	StreamLocationUpdate:    decodeAs[LocationData],
	StreamVAD:               decodeAs[VADData],
	StreamPhoneNotification: decodeAs[PhoneNotificationData],
	StreamCalendarEvent:     decodeAs[CalendarEventData],
	StreamGlassesBattery:    decodeAs[BatteryData],
	StreamPhoneBattery:      decodeAs[BatteryData],
	StreamVPSCoordinates:    decodeAs[VPSCoordinatesData],
	StreamPhotoTaken:        decodeAs[PhotoTakenData],
	StreamAudioChunk:        decodeAs[AudioChunkData],
	StreamTranscription:     decodeAs[TranscriptionData],
}

// StreamTag returns the bus tag for a wire stream type. Language-qualified
// transcription streams such as "transcription:en-US" share the
// "transcription" tag; unmodelled types map to StreamAll.
func StreamTag(streamType string) string {
	if strings.HasPrefix(streamType, StreamTranscription) {
		return StreamTranscription
	}
	if _, ok := streamDecoders[streamType]; ok {
		return streamType
	}
	return StreamAll
}

// decodeStream returns the bus tag and typed payload for a data_stream body.
// Unmodelled stream types keep their raw data as the payload.
func decodeStream(streamType string, data json.RawMessage) (string, any, error) {
	tag := StreamTag(streamType)
	if tag == StreamAll {
		return tag, data, nil
	}
	payload, err := streamDecoders[tag](data)
	if err != nil {
		return tag, nil, err
	}
	return tag, payload, nil
}
