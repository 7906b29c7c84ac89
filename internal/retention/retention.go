// Package retention plans AMI, snapshot, and volume cleanup. It is pure:
// every function works on collected inventory and never calls AWS.
package retention

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

const (
	// snapshotPricePerGBMonth is the standard-tier EBS snapshot price.
	snapshotPricePerGBMonth = 0.05

	// defaultVolumePricePerGBMonth is used for volume types missing from
	// volumePricePerGBMonth.
	defaultVolumePricePerGBMonth = 0.08
)

// Default policy values applied by Build when Options leaves them zero.
const (
	DefaultRetain     = 10
	DefaultVolumeDays = 1096
)

var volumePricePerGBMonth = map[string]float64{
	"gp2":      0.10,
	"gp3":      0.08,
	"io1":      0.125,
	"io2":      0.125,
	"st1":      0.045,
	"sc1":      0.015,
	"standard": 0.05,
}

// Options are the retention policy parameters.
type Options struct {
	// Retain is the number of newest images kept per build. Defaults to 10.
	Retain int

	// KeepWindowDays, when > 0, only lets images created within the window
	// count toward the kept set; older images are always candidates.
	KeepWindowDays int

	// VolumeDays is the age after which a volume that is not in use is
	// deleted. Defaults to 1096 (three years).
	VolumeDays int

	// SnapshotOrphanDays, when > 0, also deletes snapshots older than the
	// window that reference no retained image.
	SnapshotOrphanDays int
}

// withDefaults fills zero-valued fields.
func (o Options) withDefaults() Options {
	if o.Retain <= 0 {
		o.Retain = DefaultRetain
	}
	if o.VolumeDays <= 0 {
		o.VolumeDays = DefaultVolumeDays
	}
	return o
}

// Plan is the cleanup plan for one region.
type Plan struct {
	Region           string
	Keep             map[string]struct{}
	DeregisterImages []models.AWSImage
	RetainImages     []models.AWSImage
	DeleteSnapshots  []models.AWSSnapshot
	RetainSnapshots  []models.AWSSnapshot
	DeleteVolumes    []models.AWSEBSVolume
	RetainVolumes    []models.AWSEBSVolume
	EstimatedSavings float64
}

// BuildName returns the build an image name belongs to: the name with its
// last "-" separated segment removed. A name without "-" is its own build.
func BuildName(name string) string {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return name
	}
	return name[:i]
}

// SortImagesByNameDesc returns a copy of images sorted by name, descending.
// Build names end in a timestamp or counter, so this puts the newest image of
// every build first.
func SortImagesByNameDesc(images []models.AWSImage) []models.AWSImage {
	out := make([]models.AWSImage, len(images))
	copy(out, images)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name > out[j].Name
	})
	return out
}

// FilterRecent returns the images created at or after now minus days.
func FilterRecent(images []models.AWSImage, now time.Time, days int) []models.AWSImage {
	cutoff := now.AddDate(0, 0, -days)
	var out []models.AWSImage
	for _, img := range images {
		if !img.CreationDate.Before(cutoff) {
			out = append(out, img)
		}
	}
	return out
}

// KeepLatest returns the names of the newest retain images of every build.
func KeepLatest(images []models.AWSImage, retain int) map[string]struct{} {
	keep := make(map[string]struct{})
	if retain <= 0 {
		return keep
	}
	perBuild := make(map[string]int)
	for _, img := range SortImagesByNameDesc(images) {
		build := BuildName(img.Name)
		if perBuild[build] >= retain {
			continue
		}
		if _, dup := keep[img.Name]; dup {
			continue
		}
		perBuild[build]++
		keep[img.Name] = struct{}{}
	}
	return keep
}

// PlanImages splits images into those to deregister and those to retain.
// An image is retained when its name is in keep or an instance uses it.
func PlanImages(images []models.AWSImage, keep, inUse map[string]struct{}) (deregister, retain []models.AWSImage) {
	for _, img := range SortImagesByNameDesc(images) {
		_, kept := keep[img.Name]
		_, used := inUse[img.ImageID]
		if kept || used {
			retain = append(retain, img)
			continue
		}
		deregister = append(deregister, img)
	}
	return deregister, retain
}

// PlanSnapshots splits snapshots into those to delete and those to retain.
// Snapshots created by CreateImage carry the AMI ID in their description;
// every snapshot of a deregistered image is deleted unless a retained image
// still lists it as a block device. With orphanDays > 0, snapshots older
// than the window that reference no retained image are also deleted.
func PlanSnapshots(
	snapshots []models.AWSSnapshot,
	deregistered, retained []models.AWSImage,
	now time.Time,
	orphanDays int,
) (del, retain []models.AWSSnapshot) {
	cutoff := now.AddDate(0, 0, -orphanDays)
	for _, snap := range snapshots {
		switch {
		case backsAny(snap, retained):
			retain = append(retain, snap)
		case referencesAny(snap, deregistered):
			del = append(del, snap)
		case orphanDays > 0 && !referencesAny(snap, retained) && snap.StartTime.Before(cutoff):
			del = append(del, snap)
		default:
			retain = append(retain, snap)
		}
	}
	return del, retain
}

// backsAny reports whether snap is a block device of one of images.
func backsAny(snap models.AWSSnapshot, images []models.AWSImage) bool {
	for _, img := range images {
		if slices.Contains(img.SnapshotIDs, snap.SnapshotID) {
			return true
		}
	}
	return false
}

func referencesAny(snap models.AWSSnapshot, images []models.AWSImage) bool {
	for _, img := range images {
		if img.ImageID != "" && strings.Contains(snap.Description, img.ImageID) {
			return true
		}
		for _, id := range img.SnapshotIDs {
			if id == snap.SnapshotID {
				return true
			}
		}
	}
	return false
}

// PlanVolumes splits volumes into those to delete and those to retain.
// A volume is deleted when it is not in-use and was created before now
// minus days.
func PlanVolumes(volumes []models.AWSEBSVolume, now time.Time, days int) (del, retain []models.AWSEBSVolume) {
	cutoff := now.AddDate(0, 0, -days)
	for _, v := range volumes {
		if v.State == "in-use" || !v.CreateTime.Before(cutoff) {
			retain = append(retain, v)
			continue
		}
		del = append(del, v)
	}
	return del, retain
}

// Build produces the full cleanup plan for one region's inventory.
func Build(inv models.AWSImageInventory, now time.Time, opts Options) Plan {
	opts = opts.withDefaults()

	candidates := inv.Images
	if opts.KeepWindowDays > 0 {
		candidates = FilterRecent(inv.Images, now, opts.KeepWindowDays)
	}
	keep := KeepLatest(candidates, opts.Retain)

	p := Plan{Region: inv.Region, Keep: keep}
	p.DeregisterImages, p.RetainImages = PlanImages(inv.Images, keep, inv.InUseImageIDs)
	p.DeleteSnapshots, p.RetainSnapshots = PlanSnapshots(inv.Snapshots, p.DeregisterImages, p.RetainImages, now, opts.SnapshotOrphanDays)
	p.DeleteVolumes, p.RetainVolumes = PlanVolumes(inv.Volumes, now, opts.VolumeDays)

	for _, s := range p.DeleteSnapshots {
		p.EstimatedSavings += SnapshotMonthlyCost(s)
	}
	for _, v := range p.DeleteVolumes {
		p.EstimatedSavings += VolumeMonthlyCost(v)
	}
	return p
}

// SnapshotMonthlyCost estimates the storage cost of a snapshot. Snapshots are
// incremental, so the full volume size is an upper bound.
func SnapshotMonthlyCost(s models.AWSSnapshot) float64 {
	return float64(s.VolumeSize) * snapshotPricePerGBMonth
}

// VolumeMonthlyCost estimates the storage cost of a volume by type.
func VolumeMonthlyCost(v models.AWSEBSVolume) float64 {
	price, ok := volumePricePerGBMonth[v.VolumeType]
	if !ok {
		price = defaultVolumePricePerGBMonth
	}
	return float64(v.SizeGiB) * price
}
