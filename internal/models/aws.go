package models

import "time"

// AWSRegionData is the regional part of an AWSAccountData snapshot.
type AWSRegionData struct {
	Region string `json:"region"`

	// EBSEncryptionByDefault is nil when GetEbsEncryptionByDefault failed.
	EBSEncryptionByDefault *bool `json:"ebs_encryption_by_default,omitempty"`

	RDSInstances []AWSRDSInstance   `json:"rds_instances"`
	KMSKeys      []AWSKMSKey        `json:"kms_keys"`
	GuardDuty    AWSGuardDutyStatus `json:"guard_duty"`
	Config       AWSConfigStatus    `json:"config"`
}

// AWSRDSInstance holds the hardening attributes of an RDS DB instance.
type AWSRDSInstance struct {
	DBInstanceID            string `json:"db_instance_id"`
	DBInstanceClass         string `json:"db_instance_class"`
	Engine                  string `json:"engine"`
	Region                  string `json:"region"`
	StorageEncrypted        bool   `json:"storage_encrypted"`
	AutoMinorVersionUpgrade bool   `json:"auto_minor_version_upgrade"`
	PubliclyAccessible      bool   `json:"publicly_accessible"`
}

// AWSEC2Instance is an instance seen by the lifecycle collector. Its ImageID
// feeds the in-use image set of the cleanup planner.
type AWSEC2Instance struct {
	InstanceID   string    `json:"instance_id"`
	InstanceType string    `json:"instance_type"`
	ImageID      string    `json:"image_id"`
	State        string    `json:"state"`
	Region       string    `json:"region"`
	LaunchTime   time.Time `json:"launch_time"`
}

// AWSImage is an AMI owned by the account.
type AWSImage struct {
	ImageID      string    `json:"image_id"`
	Name         string    `json:"name"`
	Region       string    `json:"region"`
	CreationDate time.Time `json:"creation_date"`
	State        string    `json:"state"`
	// SnapshotIDs are the EBS snapshots backing the image's block devices.
	SnapshotIDs []string `json:"snapshot_ids,omitempty"`
}

// AWSSnapshot is an EBS snapshot owned by the account.
type AWSSnapshot struct {
	SnapshotID  string    `json:"snapshot_id"`
	Description string    `json:"description"`
	Region      string    `json:"region"`
	VolumeSize  int32     `json:"volume_size_gib"`
	StartTime   time.Time `json:"start_time"`
}

// AWSEBSVolume is an EBS volume considered by the volume retention policy.
type AWSEBSVolume struct {
	VolumeID   string    `json:"volume_id"`
	Region     string    `json:"region"`
	State      string    `json:"state"` // available | in-use
	VolumeType string    `json:"volume_type"`
	SizeGiB    int32     `json:"size_gib"`
	CreateTime time.Time `json:"create_time"`
}

// AWSImageInventory is everything the cleanup planner needs for one region.
type AWSImageInventory struct {
	Region    string           `json:"region"`
	Images    []AWSImage       `json:"images"`
	Snapshots []AWSSnapshot    `json:"snapshots"`
	Volumes   []AWSEBSVolume   `json:"volumes"`
	Instances []AWSEC2Instance `json:"instances"`
	// InUseImageIDs is the set of image IDs referenced by any instance in
	// the region, in any state.
	InUseImageIDs map[string]struct{} `json:"-"`
}
