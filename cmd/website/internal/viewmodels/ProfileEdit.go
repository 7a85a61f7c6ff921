package viewmodels

type ProfileEdit struct {
	BaseViewModel

	Draft     ProfileView
	ImageBusy bool
}
