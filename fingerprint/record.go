package fingerprint

import "github.com/passportdog/Apify-Local-Radar/models"

// FromRecord computes the fingerprint for a full ad record.
func FromRecord(r *models.RawRecord) string {
	return Compute(Record{
		AdvertiserID:   r.AdvertiserID,
		AdvertiserName: r.AdvertiserName,
		PrimaryText:    r.PrimaryText,
		FirstMediaURL:  r.FirstMediaURL(),
		CTAText:        r.CTAText,
	})
}
