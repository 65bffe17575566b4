package config

type UploadConfig struct {
	AllowedMimeTypes []string
	AllowedExt       []string
	MaxSizeMB        int64
}

const UploadContextEquipmentImport = "equipment_import"

var UploadContexts = map[string]UploadConfig{
	// xlsx - это zip-архив, DetectContentType видит его как application/zip
	UploadContextEquipmentImport: {
		AllowedMimeTypes: []string{
			"application/zip",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
		AllowedExt: []string{".xlsx"},
		MaxSizeMB:  10,
	},
}
