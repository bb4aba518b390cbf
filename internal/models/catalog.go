// ABOUTME: Static catalog of collectable data rows for the data-settings screen.
// ABOUTME: Defines collection kinds, wearable sources, permissions, and background jobs.
package models

// CollectedBy describes where a data row's values come from.
type CollectedBy string

const (
	CollectedByPhone     CollectedBy = "phone"
	CollectedByWearable  CollectedBy = "wearable"
	CollectedByManual    CollectedBy = "manual"
	CollectedByReference CollectedBy = "reference"
)

// Wearable sources.
const (
	SourceWhoop = "whoop"
	SourceOura  = "oura"
)

// AllSources lists every wearable source the app can connect to.
var AllSources = []string{SourceWhoop, SourceOura}

// IsValidSource checks if a string names a known wearable source.
func IsValidSource(s string) bool {
	for _, src := range AllSources {
		if src == s {
			return true
		}
	}
	return false
}

// Permission is an OS-level permission a metric may need.
type Permission string

const (
	PermMicrophone          Permission = "microphone"
	PermLocation            Permission = "location"
	PermBackgroundLocation  Permission = "background_location"
	PermNotifications       Permission = "notifications"
	PermUsageStats          Permission = "usage_stats"
	PermBatteryOptimization Permission = "battery_optimization"
	PermHCNutrition         Permission = "hc_nutrition"
	PermHCMenstruation      Permission = "hc_menstruation"
	PermHCSleep             Permission = "hc_sleep"
	PermHCHRV               Permission = "hc_hrv"
	PermHCRestingHR         Permission = "hc_resting_hr"
	PermHCSteps             Permission = "hc_steps"
)

// AllPermissions lists every permission the app queries.
var AllPermissions = []Permission{
	PermMicrophone, PermLocation, PermBackgroundLocation, PermNotifications,
	PermUsageStats, PermBatteryOptimization,
	PermHCNutrition, PermHCMenstruation, PermHCSleep, PermHCHRV, PermHCRestingHR, PermHCSteps,
}

// PermissionSettings maps permissions to the system settings screen that grants them.
var PermissionSettings = map[Permission]string{
	PermMicrophone:          "App info > Permissions > Microphone",
	PermLocation:            "App info > Permissions > Location",
	PermBackgroundLocation:  "App info > Permissions > Location > Allow all the time",
	PermNotifications:       "App info > Notifications",
	PermUsageStats:          "Settings > Apps > Special app access > Usage access",
	PermBatteryOptimization: "Settings > Apps > Special app access > Battery optimization",
	PermHCNutrition:         "Health Connect > App permissions > Nutrition",
	PermHCMenstruation:      "Health Connect > App permissions > Menstruation",
	PermHCSleep:             "Health Connect > App permissions > Sleep",
	PermHCHRV:               "Health Connect > App permissions > Heart rate variability",
	PermHCRestingHR:         "Health Connect > App permissions > Resting heart rate",
	PermHCSteps:             "Health Connect > App permissions > Steps",
}

// IsValidPermission checks if a string names a known permission.
func IsValidPermission(s string) bool {
	for _, p := range AllPermissions {
		if string(p) == s {
			return true
		}
	}
	return false
}

// JobID names a background job. Every primary job has a paired watchdog.
type JobID string

const (
	JobAmbientNoise           JobID = "ambient_noise"
	JobScreenTime             JobID = "screen_time"
	JobLocation               JobID = "location"
	JobMenstruationPrediction JobID = "menstruation_prediction"
)

// AllJobs lists the primary background jobs.
var AllJobs = []JobID{JobAmbientNoise, JobScreenTime, JobLocation, JobMenstruationPrediction}

// Watchdog returns the id of the watchdog job paired with j.
func (j JobID) Watchdog() JobID {
	return j + "_watchdog"
}

// Metric identifiers.
const (
	MetricSleepDuration = "sleep_duration_daily"
	MetricSleepScore    = "sleep_score_daily"
	MetricHRV           = "hrv_daily"
	MetricRestingHR     = "resting_hr_daily"
	MetricStressIndex   = "stress_index_daily"
	MetricSteps         = "steps_daily"
	MetricSpO2          = "spo2_daily"
	MetricSkinTemp      = "skin_temp_daily"
	MetricRecovery      = "recovery_score_daily"

	MetricAmbientNoise = "ambient_noise_index_daily"
	MetricScreenTime   = "screen_time_daily"
	MetricLocation     = "user_location_daily"
	MetricNutrition    = "nutrition_daily"
	MetricMenstruation = "menstruation"

	MetricTemperature = "temperature_daily"
	MetricPressure    = "pressure_daily"
	MetricHumidity    = "humidity_daily"
	MetricWindSpeed   = "wind_speed_daily"
	MetricUVIndex     = "uv_index_daily"

	MetricTriggerLog  = "trigger_log"
	MetricMedicineLog = "medicine_log"
	MetricReliefLog   = "relief_log"

	MetricAirQuality  = "air_quality_daily"
	MetricPollenIndex = "pollen_index_daily"
)

// DataRow is a compiled-in descriptor of one collectable metric.
type DataRow struct {
	Table                 string
	CollectedBy           CollectedBy
	Label                 string
	Group                 string
	DefaultWearableSource string
	AllowedSources        []string
	Permission            Permission
	Job                   JobID
	DependsOnLocation     bool
	// Requires lists metrics that must be enabled for the same source.
	Requires []string
}

// DefaultEnabled reports the enabled value used when no setting is stored.
func (r DataRow) DefaultEnabled() bool {
	return r.CollectedBy != CollectedByReference
}

// AllowsSource reports whether src may feed this row.
func (r DataRow) AllowsSource(src string) bool {
	for _, s := range r.AllowedSources {
		if s == src {
			return true
		}
	}
	return false
}

var bothSources = []string{SourceWhoop, SourceOura}

// Catalog is the canonical list of data rows, in display order.
var Catalog = []DataRow{
	// Wearables
	{Table: MetricSleepDuration, CollectedBy: CollectedByWearable, Label: "Sleep duration", Group: "Sleep", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricSleepScore, CollectedBy: CollectedByWearable, Label: "Sleep score", Group: "Sleep", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricHRV, CollectedBy: CollectedByWearable, Label: "Heart rate variability", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricRestingHR, CollectedBy: CollectedByWearable, Label: "Resting heart rate", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricStressIndex, CollectedBy: CollectedByWearable, Label: "Stress index", Group: "Mental", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources, Requires: []string{MetricHRV, MetricRestingHR}},
	{Table: MetricSteps, CollectedBy: CollectedByWearable, Label: "Steps", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricSpO2, CollectedBy: CollectedByWearable, Label: "Blood oxygen", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricSkinTemp, CollectedBy: CollectedByWearable, Label: "Skin temperature", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: bothSources},
	{Table: MetricRecovery, CollectedBy: CollectedByWearable, Label: "Recovery score", Group: "Physical", DefaultWearableSource: SourceWhoop, AllowedSources: []string{SourceWhoop}},

	// Phone
	{Table: MetricAmbientNoise, CollectedBy: CollectedByPhone, Label: "Ambient noise", Group: "Environment", Permission: PermMicrophone, Job: JobAmbientNoise},
	{Table: MetricScreenTime, CollectedBy: CollectedByPhone, Label: "Screen time", Group: "Mental", Permission: PermUsageStats, Job: JobScreenTime},
	{Table: MetricLocation, CollectedBy: CollectedByPhone, Label: "Location", Group: "Environment", Permission: PermLocation, Job: JobLocation},
	{Table: MetricNutrition, CollectedBy: CollectedByPhone, Label: "Nutrition", Group: "Diet", Permission: PermHCNutrition},
	{Table: MetricMenstruation, CollectedBy: CollectedByPhone, Label: "Menstruation", Group: "Physical", Permission: PermHCMenstruation, Job: JobMenstruationPrediction},

	// Weather, derived from location
	{Table: MetricTemperature, CollectedBy: CollectedByPhone, Label: "Temperature", Group: "Weather", DependsOnLocation: true},
	{Table: MetricPressure, CollectedBy: CollectedByPhone, Label: "Barometric pressure", Group: "Weather", DependsOnLocation: true},
	{Table: MetricHumidity, CollectedBy: CollectedByPhone, Label: "Humidity", Group: "Weather", DependsOnLocation: true},
	{Table: MetricWindSpeed, CollectedBy: CollectedByPhone, Label: "Wind speed", Group: "Weather", DependsOnLocation: true},
	{Table: MetricUVIndex, CollectedBy: CollectedByPhone, Label: "UV index", Group: "Weather", DependsOnLocation: true},

	// Manual
	{Table: MetricTriggerLog, CollectedBy: CollectedByManual, Label: "Triggers", Group: "Journal"},
	{Table: MetricMedicineLog, CollectedBy: CollectedByManual, Label: "Medicines", Group: "Journal"},
	{Table: MetricReliefLog, CollectedBy: CollectedByManual, Label: "Reliefs", Group: "Journal"},

	// Reference
	{Table: MetricAirQuality, CollectedBy: CollectedByReference, Label: "Air quality", Group: "Environment"},
	{Table: MetricPollenIndex, CollectedBy: CollectedByReference, Label: "Pollen index", Group: "Environment"},
}

// LookupRow finds the catalog row for a metric.
func LookupRow(metric string) (DataRow, bool) {
	for _, r := range Catalog {
		if r.Table == metric {
			return r, true
		}
	}
	return DataRow{}, false
}

// RowForJob returns the catalog row that owns a background job.
func RowForJob(job JobID) (DataRow, bool) {
	for _, r := range Catalog {
		if r.Job != "" && r.Job == job {
			return r, true
		}
	}
	return DataRow{}, false
}

// Dependents returns the metrics that list metric in their Requires.
func Dependents(metric string) []DataRow {
	var out []DataRow
	for _, r := range Catalog {
		for _, req := range r.Requires {
			if req == metric {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
